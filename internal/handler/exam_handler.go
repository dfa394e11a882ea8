package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/provexlabs/provex-backend/internal/middleware"
	"github.com/provexlabs/provex-backend/internal/model"
	"github.com/provexlabs/provex-backend/internal/response"
	"github.com/provexlabs/provex-backend/internal/service"
	"github.com/provexlabs/provex-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ExamHandler handles the exam session lifecycle routes.
type ExamHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// CreateSession handles POST /api/v1/exams
func (h *ExamHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, questions, err := h.sessionService.CreateSession(
		c.Request.Context(),
		claims.UserID,
		req.Subject,
		req.Difficulty,
		model.ExamMode(req.Mode),
	)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Session creation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session":   session,
		"questions": questions,
		"redirect":  examPath(session.ID),
	})
}

// ListSessions handles GET /api/v1/exams
func (h *ExamHandler) ListSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Session listing failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// GetSession handles GET /api/v1/exams/:session_id
//
// Completed sessions are not re-enterable: instead of the question set the
// client receives a redirect pointer to the result view.
func (h *ExamHandler) GetSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, questions, err := h.sessionService.GetSession(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	if session.IsCompleted {
		response.Success(c, http.StatusOK, gin.H{
			"session":  session,
			"redirect": examPath(session.ID) + "/result",
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":   session,
		"questions": questions,
	})
}

// SaveAnswer handles POST /api/v1/exams/:session_id/answers
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Correctness is never echoed back while the exam is running.
	if _, err := h.sessionService.SaveAnswer(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, req.SelectedAnswer); err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// NextQuestion handles POST /api/v1/exams/:session_id/questions/next
func (h *ExamHandler) NextQuestion(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	question, total, err := h.sessionService.Expand(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"question":        question,
		"total_questions": total,
	})
}

// Submit handles POST /api/v1/exams/:session_id/submit
func (h *ExamHandler) Submit(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Complete(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":  session,
		"redirect": examPath(session.ID) + "/result",
	})
}

// Result handles GET /api/v1/exams/:session_id/result
func (h *ExamHandler) Result(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Result(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// sessionParams extracts claims and the session_id path param, writing the
// error response itself when either is missing or malformed.
func (h *ExamHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}

	return claims, sessionID, true
}

func (h *ExamHandler) failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotEndless):
		response.Fail(c, http.StatusBadRequest, response.ErrNotEndless)
	default:
		h.log.Error().Err(err).Msg("Exam operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func examPath(sessionID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/exams/%s", sessionID)
}
