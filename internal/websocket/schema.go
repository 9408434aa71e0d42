package websocket

import "github.com/vigilo/proctor-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionFrame Action = "frame"
	ActionPing  Action = "ping"
)

// FrameRequest carries one frame's worth of detections for classification.
type FrameRequest struct {
	Action     Action            `json:"action"`
	Detections []model.Detection `json:"detections"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventClassified Event = "classified"
	EventPong       Event = "pong"
)

type ClassifiedResponse struct {
	Event     Event    `json:"event"`
	Movements []string `json:"movements"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
