package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilo/proctor-backend/internal/model"
)

// ReportRepository handles suspicion report persistence.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Upsert writes a report row, overwriting any previous report for the same
// (user, exam) pair. Reports are recomputed on demand, never accumulated.
func (r *ReportRepository) Upsert(ctx context.Context, rep *model.Report) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO reports (user_id, exam_id, summary, score, generated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, exam_id)
		 DO UPDATE SET summary = EXCLUDED.summary,
		               score = EXCLUDED.score,
		               generated_at = EXCLUDED.generated_at
		 RETURNING id`,
		rep.UserID, rep.ExamID, rep.Summary, rep.Score, rep.GeneratedAt,
	).Scan(&rep.ID)
}

// ListByExam retrieves all reports for an exam, highest score first.
func (r *ReportRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Report, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, exam_id, summary, score, generated_at
		 FROM reports WHERE exam_id = $1
		 ORDER BY score DESC, user_id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.ExamID, &rep.Summary, &rep.Score, &rep.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
