package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/taskkart/backend/internal/models"
)

// ErrTaskNotOpen is returned when closing a task that is not open. The guard
// lives at the data layer (conditional status update), so a task can never
// be paid out twice.
var ErrTaskNotOpen = errors.New("task is not open")

const (
	// pageSize bounds each submission query; the aggregator pages until
	// exhausted rather than truncating.
	pageSize = 100

	// payoutConcurrency caps the fan-out of independent per-submission
	// ledger writes.
	payoutConcurrency = 4
)

// TaskStore is the task repository surface the close workflow needs.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ClaimForClose(ctx context.Context, id uuid.UUID) (bool, error)
	FinishClose(ctx context.Context, id uuid.UUID, approvedCount int) error
	ReopenFromClosing(ctx context.Context, id uuid.UUID) error
}

type SubmissionStore interface {
	ListByTaskAndStatus(ctx context.Context, taskID uuid.UUID, status string, limit, offset int) ([]*models.Submission, error)
	CountByTaskAndStatus(ctx context.Context, taskID uuid.UUID, status string) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ProfileStore resolves wallet profiles by auth identity and credits them.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	AddBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service runs the close-and-payout workflow.
type Service struct {
	Pool         TxBeginner
	Tasks        TaskStore
	Submissions  SubmissionStore
	Profiles     ProfileStore
	Transactions TransactionStore
	Logger       *slog.Logger
}

func NewService(pool TxBeginner, tasks TaskStore, subs SubmissionStore, profiles ProfileStore, txns TransactionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Pool:         pool,
		Tasks:        tasks,
		Submissions:  subs,
		Profiles:     profiles,
		Transactions: txns,
		Logger:       logger,
	}
}

// Preview summarizes what a close would do, for the confirmation dialog.
type Preview struct {
	TaskID        uuid.UUID `json:"task_id"`
	Price         int       `json:"price"`
	PendingCount  int       `json:"pending_count"`
	ApprovedCount int       `json:"approved_count"`
	PayoutPerUser int       `json:"payout_per_user"`
}

// Message is the confirmation text shown before committing the close.
func (p *Preview) Message() string {
	if p.ApprovedCount == 0 {
		return fmt.Sprintf("No approved submissions found. %d pending submissions will be rejected. The task will be closed without payout.", p.PendingCount)
	}
	return fmt.Sprintf("Found %d approved submissions. Payout of ₹%d will be distributed (₹%d/user). %d pending submissions will be rejected.",
		p.ApprovedCount, p.Price, p.PayoutPerUser, p.PendingCount)
}

// Result reports the outcome of a completed close.
type Result struct {
	TaskID        uuid.UUID `json:"task_id"`
	Price         int       `json:"price"`
	ApprovedCount int       `json:"approved_count"`
	PayoutPerUser int       `json:"payout_per_user"`
	PaidCount     int       `json:"paid_count"`
	FailedPayouts int       `json:"failed_payouts"`
	PendingCount  int       `json:"pending_count"`
	RejectedCount int       `json:"rejected_count"`
}

// Summary renders the admin-facing outcome message. Partial failures are
// always called out; the text never reads as fully successful when they
// occurred.
func (r *Result) Summary() string {
	var msg string
	if r.ApprovedCount > 0 {
		msg = fmt.Sprintf("Successfully distributed ₹%d among %d users (₹%d each).", r.Price, r.ApprovedCount, r.PayoutPerUser)
		if r.FailedPayouts > 0 {
			msg = fmt.Sprintf("Distributed ₹%d to %d of %d users (₹%d each); %d payouts failed.",
				r.PayoutPerUser*r.PaidCount, r.PaidCount, r.ApprovedCount, r.PayoutPerUser, r.FailedPayouts)
		}
	} else {
		msg = "Task closed successfully. No payouts were distributed."
	}
	if r.RejectedCount > 0 {
		msg += fmt.Sprintf(" Also rejected %d pending submissions.", r.RejectedCount)
	}
	if r.RejectedCount < r.PendingCount {
		msg += fmt.Sprintf(" Warning: %d pending submissions could not be rejected.", r.PendingCount-r.RejectedCount)
	}
	return msg
}

// Preview computes the pending/approved counts and the split without
// mutating anything.
func (s *Service) Preview(ctx context.Context, taskID uuid.UUID) (*Preview, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.Status != models.TaskStatusOpen {
		return nil, ErrTaskNotOpen
	}
	pending, err := s.Submissions.CountByTaskAndStatus(ctx, taskID, models.SubmissionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending submissions: %w", err)
	}
	approved, err := s.Submissions.CountByTaskAndStatus(ctx, taskID, models.SubmissionStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("count approved submissions: %w", err)
	}
	return &Preview{
		TaskID:        taskID,
		Price:         task.Price,
		PendingCount:  pending,
		ApprovedCount: approved,
		PayoutPerUser: SplitPayout(task.Price, approved),
	}, nil
}

// Close runs the full close-and-payout workflow:
// claim -> aggregate -> reject stragglers -> split -> ledger writes -> finalize.
//
// A fatal error while listing submissions reverts the claim and leaves the
// task unmodified. Per-item failures (rejecting one straggler, paying one
// user) are counted, logged, and never abort the workflow.
func (s *Service) Close(ctx context.Context, taskID uuid.UUID) (*Result, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}

	claimed, err := s.Tasks.ClaimForClose(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if !claimed {
		return nil, ErrTaskNotOpen
	}

	pending, err := s.listAll(ctx, taskID, models.SubmissionStatusPending)
	if err != nil {
		s.revertClaim(ctx, taskID)
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	approved, err := s.listAll(ctx, taskID, models.SubmissionStatusApproved)
	if err != nil {
		s.revertClaim(ctx, taskID)
		return nil, fmt.Errorf("list approved submissions: %w", err)
	}

	rejected := s.rejectStragglers(ctx, pending)

	res := &Result{
		TaskID:        taskID,
		Price:         task.Price,
		ApprovedCount: len(approved),
		PayoutPerUser: SplitPayout(task.Price, len(approved)),
		PendingCount:  len(pending),
		RejectedCount: rejected,
	}

	if len(approved) > 0 {
		res.PaidCount, res.FailedPayouts = s.distribute(ctx, task, approved, res.PayoutPerUser)
	}

	// The finalizer records the intended approved count regardless of how
	// many individual ledger writes succeeded.
	if err := s.Tasks.FinishClose(ctx, taskID, len(approved)); err != nil {
		return nil, fmt.Errorf("finalize task: %w", err)
	}
	return res, nil
}

// listAll pages through every submission with the given status.
func (s *Service) listAll(ctx context.Context, taskID uuid.UUID, status string) ([]*models.Submission, error) {
	var all []*models.Submission
	for offset := 0; ; offset += pageSize {
		page, err := s.Submissions.ListByTaskAndStatus(ctx, taskID, status, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// rejectStragglers moves each pending submission to rejected. Each attempt
// is independent; failures are logged and reflected in the returned count.
func (s *Service) rejectStragglers(ctx context.Context, pending []*models.Submission) int {
	rejected := 0
	for _, sub := range pending {
		if err := s.Submissions.UpdateStatus(ctx, sub.ID, models.SubmissionStatusRejected); err != nil {
			s.Logger.Error("failed to reject submission", "submission_id", sub.ID, "error", err)
			continue
		}
		rejected++
	}
	return rejected
}

// distribute pays each approved submitter. Every submission is an
// independent unit of work: one transaction crediting the wallet and
// appending the ledger entry, dispatched with a bounded concurrency cap.
func (s *Service) distribute(ctx context.Context, task *models.Task, approved []*models.Submission, amount int) (paid, failed int) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(payoutConcurrency)

	for _, sub := range approved {
		g.Go(func() error {
			if err := s.payOne(gctx, task, sub, amount); err != nil {
				s.Logger.Error("payout failed", "submission_id", sub.ID, "user_id", sub.UserID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			paid++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return paid, failed
}

func (s *Service) payOne(ctx context.Context, task *models.Task, sub *models.Submission, amount int) error {
	profile, err := s.Profiles.GetByUserID(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		// Dangling userId: referential integrity is advisory, skip.
		return fmt.Errorf("no profile for user %s", sub.UserID)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.Profiles.AddBalanceTx(ctx, tx, profile.ID, amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	desc := fmt.Sprintf("Payout for task %q", task.Title)
	entry := &models.Transaction{
		ID:          uuid.New(),
		UserID:      sub.UserID,
		Amount:      amount,
		Description: &desc,
	}
	if err := s.Transactions.CreateTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Service) revertClaim(ctx context.Context, taskID uuid.UUID) {
	if err := s.Tasks.ReopenFromClosing(ctx, taskID); err != nil {
		s.Logger.Error("failed to reopen task after aborted close", "task_id", taskID, "error", err)
	}
}
