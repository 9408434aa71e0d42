package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/middleware"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/response"
	"github.com/vigilo/proctor-backend/internal/service"
	"github.com/vigilo/proctor-backend/internal/validator"
)

// ProctorHandler handles HTTP frame ingestion for proctoring.
type ProctorHandler struct {
	proctorService   *service.ProctorService
	sessionService   *service.ExamSessionService
	frameService     *service.FrameService
	screenLogService *service.ScreenLogService
	log              zerolog.Logger
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(
	proctorService *service.ProctorService,
	sessionService *service.ExamSessionService,
	frameService *service.FrameService,
	screenLogService *service.ScreenLogService,
	log zerolog.Logger,
) *ProctorHandler {
	return &ProctorHandler{
		proctorService:   proctorService,
		sessionService:   sessionService,
		frameService:     frameService,
		screenLogService: screenLogService,
		log:              logger.Component(log, "proctor_handler"),
	}
}

// requireActiveSession loads the caller's session for the exam in the URL and
// rejects the request unless it is ACTIVE. Returns ok=false after writing the
// error response.
func (h *ProctorHandler) requireActiveSession(c *gin.Context) (model.Principal, uuid.UUID, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return model.Principal{}, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return model.Principal{}, uuid.Nil, false
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), principal.ID, examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return model.Principal{}, uuid.Nil, false
	}
	if session.Status != model.SessionStatusActive {
		response.Fail(c, http.StatusForbidden, response.ErrSessionNotFound)
		return model.Principal{}, uuid.Nil, false
	}

	return principal, examID, true
}

// Feed godoc
// POST /api/v1/student/exams/:exam_id/feed
// Multipart body: "detections" is a JSON array of bounding boxes, "frame"
// is an optional evidence image. Classifies the frame synchronously and
// returns the movement events it produced.
func (h *ProctorHandler) Feed(c *gin.Context) {
	// Frames are only accepted against an ACTIVE session.
	principal, examID, ok := h.requireActiveSession(c)
	if !ok {
		return
	}

	raw := c.PostForm("detections")
	if raw == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	var detections []model.Detection
	if err := json.Unmarshal([]byte(raw), &detections); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	var framePath *string
	if file, header, ferr := c.Request.FormFile("frame"); ferr == nil {
		defer file.Close()

		path, serr := h.frameService.SaveFrame(principal.ID, examID, file, header)
		if serr != nil {
			switch {
			case errors.Is(serr, service.ErrUnsupportedFileType):
				response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			case errors.Is(serr, service.ErrFileTooLarge):
				response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			default:
				h.log.Error().Err(serr).Int("user_id", principal.ID).Msg("Frame save failed")
				response.Fail(c, http.StatusInternalServerError, response.ErrStorage)
			}
			return
		}
		framePath = &path
	}

	events, err := h.proctorService.ClassifyFrame(c.Request.Context(), principal.ID, examID, detections, framePath)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", principal.ID).Str("exam_id", examID.String()).Msg("Frame classification failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"movements": events})
}

// LogScreen godoc
// POST /api/v1/student/exams/:exam_id/screen
// Records the foreground application and browser tab title reported by the
// exam client. Accepted only against an ACTIVE session.
func (h *ProctorHandler) LogScreen(c *gin.Context) {
	principal, examID, ok := h.requireActiveSession(c)
	if !ok {
		return
	}

	var req model.ScreenLogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.screenLogService.Record(c.Request.Context(), principal.ID, examID, req); err != nil {
		h.log.Error().Err(err).Int("user_id", principal.ID).Str("exam_id", examID.String()).Msg("Screen log failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"logged": true})
}
