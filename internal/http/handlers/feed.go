package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/http/response"
	"github.com/yungbote/fynix-backend/internal/modules/feed"
)

type FeedHandler struct {
	feed feed.Service
}

func NewFeedHandler(svc feed.Service) *FeedHandler {
	return &FeedHandler{feed: svc}
}

// requestFromQuery reads optional grade/interests/language overrides. Blank
// fields are filled from the profile by the service.
func requestFromQuery(c *gin.Context) types.GenerationRequest {
	return types.GenerationRequest{
		Grade:     c.Query("grade"),
		Interests: c.Query("interests"),
		Language:  c.Query("language"),
	}
}

// POST /feed/init
// body (optional): { "grade": "8", "interests": "Space, Animals", "language": "en" }
func (h *FeedHandler) Init(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.GenerationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	items, err := h.feed.InitCache(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondAPIError(c, err, "feed_init_failed")
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /feed/next?count=5&fallback=true
func (h *FeedHandler) Next(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count := 1
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, http.StatusBadRequest, "invalid_count", errors.New("count must be a positive integer"))
			return
		}
		count = n
	}
	withFallback, _ := strconv.ParseBool(c.Query("fallback"))
	items, err := h.feed.NextFacts(c.Request.Context(), userID, count, requestFromQuery(c), withFallback)
	if err != nil {
		response.RespondAPIError(c, err, "feed_next_failed")
		return
	}
	if items == nil {
		items = []types.ContentItem{}
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /feed/next-one
func (h *FeedHandler) NextOne(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	item, err := h.feed.NextFact(c.Request.Context(), userID, requestFromQuery(c))
	if err != nil {
		response.RespondAPIError(c, err, "feed_next_failed")
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// POST /feed/answer
// body: { "title": "...", "choice": 2 }
func (h *FeedHandler) Answer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Title  string `json:"title" binding:"required"`
		Choice *int   `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.feed.Answer(c.Request.Context(), userID, req.Title, *req.Choice)
	if err != nil {
		response.RespondAPIError(c, err, "feed_answer_failed")
		return
	}
	response.RespondOK(c, out)
}

// GET /feed/answer/:id
func (h *FeedHandler) Feedback(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.feed.Feedback(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "feed_feedback_failed")
		return
	}
	response.RespondOK(c, v)
}

// POST /feed/save
// body: a content item; only the title is required when the card was served.
func (h *FeedHandler) Save(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var item types.ContentItem
	if err := c.ShouldBindJSON(&item); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.feed.Save(c.Request.Context(), userID, item)
	if err != nil {
		response.RespondAPIError(c, err, "feed_save_failed")
		return
	}
	response.RespondOK(c, res)
}
