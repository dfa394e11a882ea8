package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/provexlabs/provex-backend/internal/middleware"
	"github.com/provexlabs/provex-backend/internal/response"
	"github.com/provexlabs/provex-backend/internal/service"
	ws "github.com/provexlabs/provex-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MonitorHandler streams a session's proctoring events to authorized
// watchers over WebSocket. Events are relayed from the session's Redis
// Pub/Sub channel, so watchers only see events logged while connected.
type MonitorHandler struct {
	proctoringService *service.ProctoringService
	rdb               *redis.Client
	upgrader          gorilla.Upgrader
	log               zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(proctoringService *service.ProctoringService, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		proctoringService: proctoringService,
		rdb:               rdb,
		upgrader:          buildUpgrader(cfg),
		log:               log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Stream handles GET /ws/v1/exams/:session_id/monitor
func (h *MonitorHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership must be proven before the upgrade; after it the response
	// writer is gone.
	if err := h.proctoringService.VerifyOwnership(c.Request.Context(), sessionID, claims.UserID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Monitor ownership check failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	channel := config.CacheKey.SessionMonitorChannel(sessionID.String())
	pubsub := h.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Drain reads so close frames and pings are processed; the stream is
	// one-way otherwise.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := pubsub.Channel()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				ws.WriteError(conn, "event stream closed")
				return
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func buildUpgrader(cfg *config.Config) gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 {
				return true // Non-browser clients, or allow-all config
			}
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}
