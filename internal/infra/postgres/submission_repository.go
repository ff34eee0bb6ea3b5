package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"chromamind-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SubmissionRepository persists submissions in Postgres. Answer and breakdown
// payloads are stored as JSONB so the schema tracks the wire format.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Save(ctx context.Context, sub domain.Submission) error {
	answers, err := json.Marshal(sub.RawAnswers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	breakdown, err := json.Marshal(sub.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO submissions (session_id, name, age, submitted_at, raw_answers, score_breakdown, assigned_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			submitted_at = EXCLUDED.submitted_at,
			raw_answers = EXCLUDED.raw_answers,
			score_breakdown = EXCLUDED.score_breakdown,
			assigned_color = EXCLUDED.assigned_color`,
		sub.SessionID, sub.Name, sub.Age, sub.Timestamp, answers, breakdown, sub.AssignedColor)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, name, age, submitted_at, raw_answers, score_breakdown, assigned_color
		FROM submissions
		ORDER BY submitted_at DESC, session_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		var (
			sub       domain.Submission
			answers   []byte
			breakdown []byte
		)
		if err := rows.Scan(&sub.SessionID, &sub.Name, &sub.Age, &sub.Timestamp, &answers, &breakdown, &sub.AssignedColor); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(answers, &sub.RawAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		if err := json.Unmarshal(breakdown, &sub.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *SubmissionRepository) Delete(ctx context.Context, sessionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete submission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SubmissionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("delete all submissions: %w", err)
	}
	return nil
}
