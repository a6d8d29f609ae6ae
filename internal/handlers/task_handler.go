package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/taskkart/backend/internal/files"
	"github.com/taskkart/backend/internal/models"
	"github.com/taskkart/backend/internal/payout"
)

// TaskRepoForHandler is the subset of task repository needed by the handler.
type TaskRepoForHandler interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.Task, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Task, error)
}

// Closer runs the close-and-payout workflow.
type Closer interface {
	Preview(ctx context.Context, taskID uuid.UUID) (*payout.Preview, error)
	Close(ctx context.Context, taskID uuid.UUID) (*payout.Result, error)
}

// TaskHandler serves /api/v1/tasks endpoints.
type TaskHandler struct {
	Tasks         TaskRepoForHandler
	Payouts       Closer
	Files         files.Store
	EnqueueDelete func(ctx context.Context, key string) error
	Logger        *slog.Logger
}

const tasksPrefix = "/api/v1/tasks/"

// --- POST /api/v1/tasks (admin) ---

// Create handles task creation. The request is multipart so an attachment
// can ride along with the form fields.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}

	price := 0
	if v := r.FormValue("price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, `{"error":"invalid price"}`, http.StatusBadRequest)
			return
		}
		price = n
	}

	task := &models.Task{
		ID:          uuid.New(),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Price:       price,
		Status:      models.TaskStatusOpen,
	}
	if v := r.FormValue("level"); v != "" {
		task.Level = &v
	}
	if v := r.FormValue("deadline"); v != "" {
		dl, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, `{"error":"invalid deadline, want RFC3339"}`, http.StatusBadRequest)
			return
		}
		task.Deadline = &dl
	}
	if err := task.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	fileID, err := h.storeUpload(r)
	if err != nil {
		h.Logger.Error("upload task attachment", "error", err)
		http.Error(w, `{"error":"attachment upload failed"}`, http.StatusInternalServerError)
		return
	}
	task.FileID = fileID

	if err := h.Tasks.Create(r.Context(), task); err != nil {
		h.Logger.Error("create task", "error", err)
		http.Error(w, `{"error":"failed to create task"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// --- GET /api/v1/tasks ---

// List returns all tasks, optionally filtered by ?status=open|closed.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*models.Task
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		tasks, err = h.Tasks.ListByStatus(r.Context(), status)
	} else {
		tasks, err = h.Tasks.List(r.Context())
	}
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"failed to list tasks"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /api/v1/tasks/{id} ---

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, tasksPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- PATCH /api/v1/tasks/{id} (admin) ---

// Update edits an open task's details. A new attachment replaces the old
// one; the superseded file is removed in the background.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, tasksPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	if task.Status != models.TaskStatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not open"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}

	if v := r.FormValue("title"); v != "" {
		task.Title = v
	}
	if v := r.FormValue("description"); v != "" {
		task.Description = v
	}
	if v := r.FormValue("category"); v != "" {
		task.Category = v
	}
	if v := r.FormValue("level"); v != "" {
		task.Level = &v
	}
	if v := r.FormValue("price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, `{"error":"invalid price"}`, http.StatusBadRequest)
			return
		}
		task.Price = n
	}
	if v := r.FormValue("deadline"); v != "" {
		dl, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, `{"error":"invalid deadline, want RFC3339"}`, http.StatusBadRequest)
			return
		}
		task.Deadline = &dl
	}
	if err := task.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	newFileID, err := h.storeUpload(r)
	if err != nil {
		h.Logger.Error("upload task attachment", "error", err)
		http.Error(w, `{"error":"attachment upload failed"}`, http.StatusInternalServerError)
		return
	}
	oldFileID := task.FileID
	if newFileID != nil {
		task.FileID = newFileID
	}

	if err := h.Tasks.Update(r.Context(), task); err != nil {
		h.Logger.Error("update task", "error", err)
		http.Error(w, `{"error":"failed to update task"}`, http.StatusInternalServerError)
		return
	}

	if newFileID != nil && oldFileID != nil {
		h.enqueueFileDelete(r.Context(), *oldFileID)
	}

	writeJSON(w, http.StatusOK, task)
}

// --- DELETE /api/v1/tasks/{id} (admin) ---

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, tasksPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}

	if err := h.Tasks.Delete(r.Context(), taskID); err != nil {
		h.Logger.Error("delete task", "error", err)
		http.Error(w, `{"error":"failed to delete task"}`, http.StatusInternalServerError)
		return
	}
	if task.FileID != nil {
		h.enqueueFileDelete(r.Context(), *task.FileID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- GET /api/v1/tasks/{id}/close-preview (admin) ---

// ClosePreview reports what a close would do without changing anything.
func (h *TaskHandler) ClosePreview(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, tasksPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	prev, err := h.Payouts.Preview(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, payout.ErrTaskNotOpen) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not open"})
			return
		}
		h.Logger.Error("close preview", "task_id", taskID, "error", err)
		http.Error(w, `{"error":"failed to build close preview"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"preview": prev,
		"message": prev.Message(),
	})
}

// --- POST /api/v1/tasks/{id}/close (admin) ---

// Close runs the payout workflow and closes the task. A second close of
// the same task gets a 409.
func (h *TaskHandler) Close(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, tasksPrefix)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	res, err := h.Payouts.Close(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, payout.ErrTaskNotOpen) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not open"})
			return
		}
		h.Logger.Error("close task", "task_id", taskID, "error", err)
		http.Error(w, `{"error":"failed to close task"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":  res,
		"message": res.Summary(),
	})
}

// --- helpers ---

// storeUpload saves the optional "file" part and returns its storage key,
// or nil when the form carries no file.
func (h *TaskHandler) storeUpload(r *http.Request) (*string, error) {
	f, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	key := uuid.New().String() + filepath.Ext(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if err := h.Files.Upload(r.Context(), key, contentType, f); err != nil {
		return nil, err
	}
	return &key, nil
}

func (h *TaskHandler) enqueueFileDelete(ctx context.Context, key string) {
	if h.EnqueueDelete == nil {
		return
	}
	if err := h.EnqueueDelete(ctx, key); err != nil {
		h.Logger.Warn("enqueue file delete", "key", key, "error", err)
	}
}
