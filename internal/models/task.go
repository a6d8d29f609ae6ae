package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task status values. "closing" is an internal transitional state claimed by
// the close-and-payout workflow so a task can never be closed twice.
const (
	TaskStatusOpen    = "open"
	TaskStatusClosing = "closing"
	TaskStatusClosed  = "closed"
)

// Task difficulty levels.
const (
	TaskLevelEasy   = "Easy"
	TaskLevelMedium = "Medium"
	TaskLevelHard   = "Hard"
)

type Task struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Level         *string    `json:"level,omitempty"`
	Category      string     `json:"category"`
	Price         int        `json:"price"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	FileID        *string    `json:"file_id,omitempty"`
	ApprovedCount *int       `json:"approved_count,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate rejects a task document before it reaches the store.
func (t *Task) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	if t.Price < 0 {
		return errors.New("price must be >= 0")
	}
	switch t.Status {
	case TaskStatusOpen, TaskStatusClosing, TaskStatusClosed:
	default:
		return errors.New("invalid task status")
	}
	if t.Level != nil {
		switch *t.Level {
		case TaskLevelEasy, TaskLevelMedium, TaskLevelHard:
		default:
			return errors.New("invalid task level")
		}
	}
	return nil
}
