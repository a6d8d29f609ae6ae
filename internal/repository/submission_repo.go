package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskkart/backend/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO submissions (id, task_id, user_id, file_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING submitted_at
	`, s.ID, s.TaskID, s.UserID, s.FileID, s.Status).Scan(&s.SubmittedAt)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var s models.Submission
	err := r.pool.QueryRow(ctx, `
		SELECT id, task_id, user_id, file_id, status, submitted_at
		FROM submissions WHERE id = $1
	`, id).Scan(&s.ID, &s.TaskID, &s.UserID, &s.FileID, &s.Status, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByTaskAndStatus pages through a task's submissions with a given
// status, newest first.
func (r *SubmissionRepo) ListByTaskAndStatus(ctx context.Context, taskID uuid.UUID, status string, limit, offset int) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, file_id, status, submitted_at
		FROM submissions WHERE task_id = $1 AND status = $2
		ORDER BY submitted_at DESC LIMIT $3 OFFSET $4
	`, taskID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// CountByTaskAndStatus supports the close-preview confirmation dialog.
func (r *SubmissionRepo) CountByTaskAndStatus(ctx context.Context, taskID uuid.UUID, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM submissions WHERE task_id = $1 AND status = $2
	`, taskID, status).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM submissions`).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, file_id, status, submitted_at
		FROM submissions WHERE task_id = $1 ORDER BY submitted_at DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

func (r *SubmissionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, file_id, status, submitted_at
		FROM submissions WHERE user_id = $1 ORDER BY submitted_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectSubmissions(rows)
}

// ExistsForTaskAndUser backs the one-submission-per-user pre-check. Soft
// check only: there is no uniqueness constraint at the storage level.
func (r *SubmissionRepo) ExistsForTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM submissions WHERE task_id = $1 AND user_id = $2)
	`, taskID, userID).Scan(&exists)
	return exists, err
}

func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE submissions SET status = $2 WHERE id = $1
	`, id, status)
	return err
}

func collectSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	defer rows.Close()
	var list []*models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.TaskID, &s.UserID, &s.FileID, &s.Status, &s.SubmittedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
