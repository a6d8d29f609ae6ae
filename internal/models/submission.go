package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Submission review status values.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// Submission is a user's uploaded deliverable against a task. UserID refers
// to the authentication identity, not a profile row id.
type Submission struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	UserID      uuid.UUID `json:"user_id"`
	FileID      string    `json:"file_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (s *Submission) Validate() error {
	if s.TaskID == uuid.Nil {
		return errors.New("task_id is required")
	}
	if s.UserID == uuid.Nil {
		return errors.New("user_id is required")
	}
	if s.FileID == "" {
		return errors.New("file_id is required")
	}
	switch s.Status {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected:
	default:
		return errors.New("invalid submission status")
	}
	return nil
}
