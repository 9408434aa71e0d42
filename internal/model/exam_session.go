package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. NOT_STARTED is virtual: it
// means no session row exists yet for the (user, exam) pair.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusActive     SessionStatus = "ACTIVE"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
)

// ExamSession represents a user's attempt at an exam. At most one session
// exists per (user, exam); the transition ACTIVE → SUBMITTED is terminal.
type ExamSession struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	UserID      int           `json:"user_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
}

// AnswerRecord is a persisted answer, unique per (user, exam, question).
type AnswerRecord struct {
	ID             int64     `json:"id"`
	UserID         int       `json:"user_id"`
	ExamID         uuid.UUID `json:"exam_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// AnswerSubmission is a single answer in a SubmitExamRequest. QuestionNumber
// is 1-based and resolved against the exam's question ordering. An empty
// SelectedOption means the question was left blank.
type AnswerSubmission struct {
	QuestionNumber int    `json:"question_number" binding:"required,min=1"`
	SelectedOption string `json:"selected_option" binding:"omitempty,oneof=A B C D E F"`
}

// SubmitExamRequest is the payload for submitting an exam.
type SubmitExamRequest struct {
	Answers []AnswerSubmission `json:"answers" binding:"required,min=1,dive"`
}

// ActiveSessionView is a row in the invigilator's list of currently running
// sessions (exam window contains now).
type ActiveSessionView struct {
	UserID    int           `json:"user_id"`
	Username  string        `json:"username"`
	ExamID    uuid.UUID     `json:"exam_id"`
	ExamTitle string        `json:"exam_title"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
}
