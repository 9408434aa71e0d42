package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/repository"
)

// Session lifecycle errors.
var (
	ErrNotStudent       = errors.New("caller is not a student")
	ErrEmptyAnswers     = errors.New("answers list is empty")
	ErrAlreadySubmitted = errors.New("exam already submitted")
	ErrSessionNotFound  = errors.New("no session for this exam")
)

// SessionStore is the session persistence contract the manager depends on.
// *repository.SessionRepository satisfies it.
type SessionStore interface {
	GetByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error)
	Create(ctx context.Context, s *model.ExamSession) error
	SubmitAnswers(ctx context.Context, userID int, examID uuid.UUID, answers []model.AnswerRecord) error
}

// ExamCatalog is the exam lookup contract. *repository.ExamRepository
// satisfies it.
type ExamCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// ExamSessionService enforces the per-(user, exam) session state machine:
// NOT_STARTED --Start--> ACTIVE --Submit--> SUBMITTED (terminal).
type ExamSessionService struct {
	sessions SessionStore
	exams    ExamCatalog
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(sessions SessionStore, exams ExamCatalog, log zerolog.Logger) *ExamSessionService {
	return &ExamSessionService{
		sessions: sessions,
		exams:    exams,
		log:      logger.Component(log, "exam_session_service"),
	}
}

// StartExam creates an ACTIVE session for the caller, or returns the existing
// one unchanged. Repeating Start never creates duplicate state and always
// reports success; under concurrent starts exactly one row is inserted and
// both callers observe it.
func (s *ExamSessionService) StartExam(ctx context.Context, principal model.Principal, examID uuid.UUID) (*model.ExamSession, error) {
	if principal.Role != model.RoleStudent {
		return nil, ErrNotStudent
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	session := &model.ExamSession{
		ExamID: exam.ID,
		UserID: principal.ID,
		Status: model.SessionStatusActive,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		// Lost the insert race or the session already existed; the stored
		// row is the single source of truth either way.
		existing, fetchErr := s.sessions.GetByUserAndExam(ctx, principal.ID, examID)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch existing session: %w", fetchErr)
		}
		return existing, nil
	}

	s.log.Info().
		Int("user_id", principal.ID).
		Str("exam_id", examID.String()).
		Msg("Exam session started")

	return session, nil
}

// SubmitExam resolves 1-based question ordinals against the exam's stable
// question ordering and persists every resolved answer atomically, flipping
// the session to SUBMITTED. An ordinal that maps to no question is skipped
// silently; a second submission fails with ErrAlreadySubmitted and leaves
// the first submission's answers untouched.
func (s *ExamSessionService) SubmitExam(ctx context.Context, principal model.Principal, examID uuid.UUID, answers []model.AnswerSubmission) (*model.ExamSession, error) {
	if principal.Role != model.RoleStudent {
		return nil, ErrNotStudent
	}
	if len(answers) == 0 {
		return nil, ErrEmptyAnswers
	}

	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := s.exams.ListQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	records := make([]model.AnswerRecord, 0, len(answers))
	for _, a := range answers {
		idx := a.QuestionNumber - 1
		if idx < 0 || idx >= len(questions) {
			s.log.Warn().
				Int("user_id", principal.ID).
				Str("exam_id", examID.String()).
				Int("question_number", a.QuestionNumber).
				Msg("Skipping unresolvable answer ordinal")
			continue
		}
		records = append(records, model.AnswerRecord{
			UserID:         principal.ID,
			ExamID:         examID,
			QuestionID:     questions[idx].ID,
			SelectedOption: a.SelectedOption,
		})
	}

	if err := s.sessions.SubmitAnswers(ctx, principal.ID, examID, records); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrSessionSubmitted):
			return nil, ErrAlreadySubmitted
		default:
			return nil, fmt.Errorf("submit answers: %w", err)
		}
	}

	s.log.Info().
		Int("user_id", principal.ID).
		Str("exam_id", examID.String()).
		Int("answers", len(records)).
		Int("skipped", len(answers)-len(records)).
		Msg("Exam submitted")

	return s.sessions.GetByUserAndExam(ctx, principal.ID, examID)
}

// GetSession reports the caller's session state for an exam. A missing row
// maps to the virtual NOT_STARTED status rather than an error.
func (s *ExamSessionService) GetSession(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByUserAndExam(ctx, userID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.ExamSession{
				ExamID: examID,
				UserID: userID,
				Status: model.SessionStatusNotStarted,
			}, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}
