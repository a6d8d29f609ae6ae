package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an append-only ledger entry justifying a balance change.
// Never mutated or deleted.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int       `json:"amount"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
