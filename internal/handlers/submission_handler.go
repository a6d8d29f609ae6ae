package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/taskkart/backend/internal/files"
	"github.com/taskkart/backend/internal/middleware"
	"github.com/taskkart/backend/internal/models"
)

// SubmissionRepoForHandler is the subset of submission repository needed
// by the handler.
type SubmissionRepoForHandler interface {
	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Submission, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Submission, error)
	ExistsForTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// TaskGetter resolves the task a submission targets.
type TaskGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// SubmissionHandler serves /api/v1/submissions endpoints.
type SubmissionHandler struct {
	Subs   SubmissionRepoForHandler
	Tasks  TaskGetter
	Files  files.Store
	Logger *slog.Logger
}

const submissionsPrefix = "/api/v1/submissions/"

// --- POST /api/v1/submissions ---

// Create uploads a submission file against an open task. The multipart
// form carries a task_id field and the file itself.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}
	taskID, err := uuid.Parse(r.FormValue("task_id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task_id"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	if task.Status != models.TaskStatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is no longer accepting submissions"})
		return
	}

	// Advisory check; a concurrent duplicate slips through and is treated
	// like any other submission downstream.
	exists, err := h.Subs.ExistsForTaskAndUser(r.Context(), taskID, sess.UserID)
	if err != nil {
		h.Logger.Error("check existing submission", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "you have already submitted for this task"})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file is required"}`, http.StatusBadRequest)
		return
	}
	defer f.Close()

	key := uuid.New().String() + filepath.Ext(header.Filename)
	if err := h.Files.Upload(r.Context(), key, header.Header.Get("Content-Type"), f); err != nil {
		h.Logger.Error("upload submission file", "error", err)
		http.Error(w, `{"error":"file upload failed"}`, http.StatusInternalServerError)
		return
	}

	sub := &models.Submission{
		ID:     uuid.New(),
		TaskID: taskID,
		UserID: sess.UserID,
		FileID: key,
		Status: models.SubmissionStatusPending,
	}
	if err := sub.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.Subs.Create(r.Context(), sub); err != nil {
		h.Logger.Error("create submission", "error", err)
		http.Error(w, `{"error":"failed to create submission"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// --- GET /api/v1/submissions ---

// ListMine returns the calling user's submissions. Admins may pass
// ?task_id= to list every submission for a task instead.
func (h *SubmissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if raw := r.URL.Query().Get("task_id"); raw != "" {
		if !sess.IsAdmin {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		taskID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid task_id"}`, http.StatusBadRequest)
			return
		}
		subs, err := h.Subs.ListByTask(r.Context(), taskID)
		if err != nil {
			h.Logger.Error("list submissions by task", "error", err)
			http.Error(w, `{"error":"failed to list submissions"}`, http.StatusInternalServerError)
			return
		}
		if subs == nil {
			subs = []*models.Submission{}
		}
		writeJSON(w, http.StatusOK, subs)
		return
	}

	subs, err := h.Subs.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("list submissions by user", "error", err)
		http.Error(w, `{"error":"failed to list submissions"}`, http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// --- PATCH /api/v1/submissions/{id} (admin) ---

type reviewRequest struct {
	Status string `json:"status"`
}

// Review approves or rejects a pending submission. The task must still be
// open; once the close workflow runs it owns submission statuses.
func (h *SubmissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	subID, ok := pathID(r, submissionsPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid submission id"}`, http.StatusBadRequest)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Status != models.SubmissionStatusApproved && req.Status != models.SubmissionStatusRejected {
		http.Error(w, `{"error":"status must be approved or rejected"}`, http.StatusBadRequest)
		return
	}

	sub, err := h.Subs.GetByID(r.Context(), subID)
	if err != nil {
		http.Error(w, `{"error":"submission not found"}`, http.StatusNotFound)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), sub.TaskID)
	if err != nil {
		h.Logger.Error("load task for review", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if task.Status != models.TaskStatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not open"})
		return
	}

	if err := h.Subs.UpdateStatus(r.Context(), subID, req.Status); err != nil {
		h.Logger.Error("update submission status", "error", err)
		http.Error(w, `{"error":"failed to update submission"}`, http.StatusInternalServerError)
		return
	}
	sub.Status = req.Status
	writeJSON(w, http.StatusOK, sub)
}
