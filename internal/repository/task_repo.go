package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskkart/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, level, category, price, deadline, file_id, approved_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.Status, t.Level, t.Category, t.Price, t.Deadline, t.FileID, t.ApprovedCount).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, status, level, category, price, deadline, file_id, approved_count, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Level, &t.Category, &t.Price, &t.Deadline, &t.FileID, &t.ApprovedCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update persists admin-editable fields. Status and approved_count are only
// ever changed through the close-workflow transitions below.
func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET title = $2, description = $3, level = $4, category = $5, price = $6, deadline = $7, file_id = $8, updated_at = now()
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Level, t.Category, t.Price, t.Deadline, t.FileID)
	return err
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return err
}

func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, status, level, category, price, deadline, file_id, approved_count, created_at, updated_at
		FROM tasks ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Level, &t.Category, &t.Price, &t.Deadline, &t.FileID, &t.ApprovedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *TaskRepo) ListByStatus(ctx context.Context, status string) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, status, level, category, price, deadline, file_id, approved_count, created_at, updated_at
		FROM tasks WHERE status = $1 ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Level, &t.Category, &t.Price, &t.Deadline, &t.FileID, &t.ApprovedCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *TaskRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE status = $1`, status).Scan(&n)
	return n, err
}

// ClaimForClose atomically transitions an open task to closing. Returns
// false if the task was not open, so a task can never be closed twice.
func (r *TaskRepo) ClaimForClose(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.TaskStatusClosing, models.TaskStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FinishClose moves a claimed task to closed and records the approved count
// as a permanent audit field.
func (r *TaskRepo) FinishClose(ctx context.Context, id uuid.UUID, approvedCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, approved_count = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.TaskStatusClosed, approvedCount, models.TaskStatusClosing)
	return err
}

// ReopenFromClosing reverts a claim after a fatal workflow error so the
// task remains closable.
func (r *TaskRepo) ReopenFromClosing(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.TaskStatusOpen, models.TaskStatusClosing)
	return err
}
