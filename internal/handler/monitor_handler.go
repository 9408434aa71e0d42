package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/response"
	"github.com/vigilo/proctor-backend/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	refreshInterval   = 15 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler handles invigilator monitoring endpoints.
type MonitorHandler struct {
	rdb            *redis.Client
	monitorService *service.MonitorService
	frameService   *service.FrameService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	monitorService *service.MonitorService,
	frameService *service.FrameService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		monitorService: monitorService,
		frameService:   frameService,
		log:            logger.Component(log, "monitor_handler"),
	}
}

// ActiveSessions godoc
// GET /api/v1/invigilator/sessions/active
// Lists ACTIVE sessions whose exam window contains the current time.
func (h *MonitorHandler) ActiveSessions(c *gin.Context) {
	sessions, err := h.monitorService.ListActiveSessions(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if sessions == nil {
		sessions = []model.ActiveSessionView{}
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// UnusualDetections godoc
// GET /api/v1/invigilator/detections/unusual
// Lists recent non-baseline movement events across all exams, newest first.
func (h *MonitorHandler) UnusualDetections(c *gin.Context) {
	detections, err := h.monitorService.ListUnusualDetections(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if detections == nil {
		detections = []model.UnusualDetectionView{}
	}
	response.Success(c, http.StatusOK, gin.H{"detections": detections})
}

// UnusualFrames godoc
// GET /api/v1/invigilator/exams/:exam_id/users/:user_id/frames
// Lists evidence frame references for a student's non-baseline events.
func (h *MonitorHandler) UnusualFrames(c *gin.Context) {
	examID, userID, ok := h.parseSubject(c)
	if !ok {
		return
	}

	frames, err := h.monitorService.ListUnusualFrames(c.Request.Context(), userID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if frames == nil {
		frames = []model.FrameView{}
	}
	response.Success(c, http.StatusOK, gin.H{"frames": frames})
}

// ScreenLogs godoc
// GET /api/v1/invigilator/exams/:exam_id/users/:user_id/screen-logs
// Lists the screen activity samples reported by a student's exam client,
// newest first.
func (h *MonitorHandler) ScreenLogs(c *gin.Context) {
	examID, userID, ok := h.parseSubject(c)
	if !ok {
		return
	}

	logs, err := h.monitorService.ListScreenLogs(c.Request.Context(), userID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"screen_logs": logs})
}

// LatestFrame godoc
// GET /api/v1/invigilator/exams/:exam_id/users/:user_id/frames/latest
// Serves the most recent evidence image for the student, or 404.
func (h *MonitorHandler) LatestFrame(c *gin.Context) {
	examID, userID, ok := h.parseSubject(c)
	if !ok {
		return
	}

	frame, err := h.monitorService.GetLatestFrame(c.Request.Context(), userID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if frame == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	absPath, err := h.frameService.FrameAbsPath(frame.FramePath)
	if err != nil {
		h.log.Warn().Err(err).Str("frame_path", frame.FramePath).Msg("Stored frame path is invalid")
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	c.File(absPath)
}

// LiveFeed godoc
// GET /api/v1/invigilator/exams/:exam_id/live
// SSE stream of unusual movement events for one exam, with periodic
// active-session refreshes and keep-alive pings.
func (h *MonitorHandler) LiveFeed(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	channelName := config.CacheKey.ExamMonitorChannel(examID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Invigilator attached to live feed")

	h.sendSessionRefresh(c, reqCtx)

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Invigilator disconnected from live feed")
			return

		case msg := <-ch:
			// Payload is already serialized JSON, forward as-is.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSessionRefresh(c, reqCtx)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSessionRefresh queries active sessions under a scoped timeout and
// writes a refresh event.
func (h *MonitorHandler) sendSessionRefresh(c *gin.Context, parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	sessions, err := h.monitorService.ListActiveSessions(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch active sessions for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":     "refresh",
		"sessions": sessions,
	})
	c.Writer.Flush()
}

// parseSubject extracts the (exam_id, user_id) pair common to the
// per-student monitoring endpoints.
func (h *MonitorHandler) parseSubject(c *gin.Context) (uuid.UUID, int, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}

	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}

	return examID, userID, true
}
