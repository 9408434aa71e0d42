package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Exam represents a scheduled exam.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// WindowContains reports whether the exam's scheduled window covers t.
func (e *Exam) WindowContains(t time.Time) bool {
	return !t.Before(e.StartTime) && !t.After(e.EndTime)
}

// Question is a multiple-choice question belonging to an exam.
// OrderNum gives the stable ascending ordering used to resolve 1-based
// answer ordinals at submission time.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"-"`
	OrderNum      int             `json:"order_num"`
}

// QuestionForStudent is a question without the correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	OrderNum     int             `json:"order_num"`
}

// CreateExamRequest is the payload for creating a new exam with its questions.
type CreateExamRequest struct {
	Title           string          `json:"title" binding:"required,min=3,max=100"`
	Description     string          `json:"description" binding:"omitempty,max=2000"`
	StartTime       time.Time       `json:"start_time" binding:"required"`
	EndTime         time.Time       `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

// QuestionInput is a single question in a CreateExamRequest.
type QuestionInput struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1"`
	Options       []string `json:"options" binding:"required,min=2,max=6,dive,required"`
	CorrectOption string   `json:"correct_option" binding:"required,oneof=A B C D E F"`
}
