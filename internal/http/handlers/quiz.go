package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fynix-backend/internal/http/response"
	"github.com/yungbote/fynix-backend/internal/modules/quiz"
)

// MaxUploadBytes bounds a single photographed page.
const MaxUploadBytes = 15 << 20

type QuizHandler struct {
	quiz quiz.Service
}

func NewQuizHandler(svc quiz.Service) *QuizHandler {
	return &QuizHandler{quiz: svc}
}

// POST /quiz-sessions
// JSON body: { "text": "...", "language": "de" }
// multipart: field "image" (file) plus optional "language"
func (h *QuizHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	in, err := readQuizInput(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.quiz.Create(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_create_failed")
		return
	}
	response.RespondCreated(c, v)
}

func readQuizInput(c *gin.Context) (quiz.Input, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req struct {
			Text     string `json:"text"`
			Language string `json:"language"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return quiz.Input{}, err
		}
		return quiz.Input{Kind: quiz.InputText, Text: req.Text, Language: req.Language}, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	in := quiz.Input{Kind: quiz.InputImage, Language: c.PostForm("language")}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		// the pipeline reports missing_image
		return in, nil
	}
	if err != nil {
		return quiz.Input{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return quiz.Input{}, err
	}
	defer f.Close()
	in.Image, err = io.ReadAll(f)
	if err != nil {
		return quiz.Input{}, err
	}
	return in, nil
}

// GET /quiz-sessions/:id
func (h *QuizHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.quiz.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_get_failed")
		return
	}
	response.RespondOK(c, v)
}

// POST /quiz-sessions/:id/answer
// body: { "choice": 1 }
func (h *QuizHandler) Answer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Choice *int `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.quiz.Answer(c.Request.Context(), userID, id, *req.Choice)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_answer_failed")
		return
	}
	response.RespondOK(c, out)
}

// POST /quiz-sessions/:id/next
func (h *QuizHandler) Next(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.quiz.Next(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_next_failed")
		return
	}
	response.RespondOK(c, v)
}

// GET /quiz-sessions/:id/summary
func (h *QuizHandler) Summary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.quiz.Summary(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "quiz_summary_failed")
		return
	}
	response.RespondOK(c, v)
}
