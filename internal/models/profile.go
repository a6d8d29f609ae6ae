package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the wallet-bearing profile document. ID is the row id;
// UserID is the authentication identity the rest of the system keys on.
// Balance is mutated only by the payout ledger writer (and manual admin
// adjustments).
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        *string   `json:"phone,omitempty"`
	Balance      int       `json:"balance"`
	UPIID        *string   `json:"upi_id,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
