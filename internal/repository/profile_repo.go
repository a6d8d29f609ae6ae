package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskkart/backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, p *models.UserProfile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (id, user_id, name, email, password_hash, phone, balance, upi_id, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.UserID, p.Name, p.Email, p.PasswordHash, p.Phone, p.Balance, p.UPIID, p.IsAdmin).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByUserID resolves a profile by the authentication identity, never by
// row id. Returns nil with no error when no profile exists: referential
// integrity is advisory and callers decide how to treat a dangling userId.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, password_hash, phone, balance, upi_id, is_admin, created_at, updated_at
		FROM user_profiles WHERE user_id = $1
	`, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	p, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, password_hash, phone, balance, upi_id, is_admin, created_at, updated_at
		FROM user_profiles WHERE email = $1
	`, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UpdateDetails persists the user-editable fields.
func (r *ProfileRepo) UpdateDetails(ctx context.Context, p *models.UserProfile) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_profiles SET name = $2, phone = $3, upi_id = $4, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Name, p.Phone, p.UPIID)
	return err
}

// AddBalanceTx credits amount to the profile inside the given transaction
// and returns the new balance.
func (r *ProfileRepo) AddBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_profiles SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

func (r *ProfileRepo) scanOne(row pgx.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	var name *string
	var phone, upiID *string
	err := row.Scan(&p.ID, &p.UserID, &name, &p.Email, &p.PasswordHash, &phone, &p.Balance, &upiID, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// Remote rows may predate the NOT NULL defaults; default explicitly.
	if name != nil {
		p.Name = *name
	}
	p.Phone = phone
	p.UPIID = upiID
	return &p, nil
}
