package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fynix-backend/internal/http/response"
	"github.com/yungbote/fynix-backend/internal/modules/learner"
)

type ProfileHandler struct {
	learners learner.Service
}

func NewProfileHandler(svc learner.Service) *ProfileHandler {
	return &ProfileHandler{learners: svc}
}

// GET /me/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	v, err := h.learners.Profile(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err, "profile_get_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": v})
}

// PUT /me/profile
// body: { "name": "...", "grade": "8", "interests": ["Space"], "roast_level": 3, "language": "de" }
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in learner.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.learners.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondAPIError(c, err, "profile_update_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": v})
}

// GET /me/saved-facts
func (h *ProfileHandler) SavedFacts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	facts, err := h.learners.SavedFacts(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err, "saved_facts_failed")
		return
	}
	response.RespondOK(c, gin.H{"facts": facts})
}

// GET /me/quiz-results?limit=20
func (h *ProfileHandler) QuizResults(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	results, err := h.learners.Results(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_results_failed")
		return
	}
	response.RespondOK(c, gin.H{"results": results})
}
