package model

import (
	"time"

	"github.com/google/uuid"
)

// ScreenLog is one sample of what the student's machine showed during an
// exam: the foreground application and the active browser tab title.
type ScreenLog struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"user_id"`
	ExamID    uuid.UUID `json:"exam_id"`
	AppName   string    `json:"app_name"`
	TabTitle  string    `json:"tab_title"`
	CreatedAt time.Time `json:"created_at"`
}

// ScreenLogRequest is the client payload for recording a screen sample.
type ScreenLogRequest struct {
	AppName  string `json:"app_name" binding:"required,max=255"`
	TabTitle string `json:"tab_title" binding:"required,max=512"`
}
