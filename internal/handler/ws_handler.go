package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/middleware"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/service"
	ws "github.com/vigilo/proctor-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket detection stream.
type WSHandler struct {
	proctorService *service.ProctorService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(proctorService *service.ProctorService, sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		proctorService: proctorService,
		sessionService: sessionService,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// DetectionStream godoc
// WS /ws/v1/student/exams/:exam_id/detections
// Upgrades to WebSocket for continuous detection streaming. Classified
// events are persisted asynchronously through the movement queue.
func (h *WSHandler) DetectionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	// Streaming requires an ACTIVE session.
	session, err := h.sessionService.GetSession(c.Request.Context(), claims.UserID, examID)
	if err != nil || session.Status != model.SessionStatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "no active session for this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected to detection stream")

	for {
		var msg ws.FrameRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionFrame:
			h.handleFrame(c, conn, wsLog, claims.UserID, examID, msg.Detections)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleFrame classifies one frame's detections and reports the resulting
// movement types back to the client.
func (h *WSHandler) handleFrame(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, userID int, examID uuid.UUID, detections []model.Detection) {
	events, err := h.proctorService.ClassifyFrameQueued(c.Request.Context(), userID, examID, detections)
	if err != nil {
		wsLog.Error().Err(err).Msg("Frame classification failed")
		ws.WriteError(conn, "classification failed")
		return
	}

	movements := make([]string, 0, len(events))
	for _, ev := range events {
		movements = append(movements, string(ev.MovementType))
	}

	ws.WriteTyped(conn, ws.ClassifiedResponse{
		Event:     ws.EventClassified,
		Movements: movements,
	})
}
