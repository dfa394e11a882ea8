package handler

import (
	"errors"
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

// ProctoringHandler handles proctoring event and snapshot ingestion.
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
	log               zerolog.Logger
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(proctoringService *service.ProctoringService, log zerolog.Logger) *ProctoringHandler {
	return &ProctoringHandler{
		proctoringService: proctoringService,
		log:               log.With().Str("component", "proctoring_handler").Logger(),
	}
}

// LogActivity handles POST /api/v1/exams/:session_id/events
func (h *ProctoringHandler) LogActivity(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.LogActivityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctoringService.LogEvent(c.Request.Context(), sessionID, claims.UserID, req.EventType, req.Details); err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "logged"})
}

// UploadSnapshot handles POST /api/v1/exams/:session_id/snapshots
func (h *ProctoringHandler) UploadSnapshot(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.UploadSnapshotRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctoringService.UploadSnapshot(c.Request.Context(), sessionID, claims.UserID, req.ImageData); err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "uploaded"})
}

// ListEvents handles GET /api/v1/exams/:session_id/events
func (h *ProctoringHandler) ListEvents(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	events, err := h.proctoringService.ListEvents(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}

func (h *ProctoringHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
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

func (h *ProctoringHandler) failFromError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	h.log.Error().Err(err).Msg("Proctoring operation failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
