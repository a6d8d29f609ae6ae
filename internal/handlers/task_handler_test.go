package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/taskkart/backend/internal/models"
	"github.com/taskkart/backend/internal/payout"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newMockTaskRepo(ts ...*models.Task) *mockTaskRepo {
	m := &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range ts {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

func (m *mockTaskRepo) Create(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) Update(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) List(_ context.Context) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Task
	for _, t := range m.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockTaskRepo) ListByStatus(_ context.Context, status string) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockCloser struct {
	preview *payout.Preview
	result  *payout.Result
	err     error
}

func (m *mockCloser) Preview(context.Context, uuid.UUID) (*payout.Preview, error) {
	return m.preview, m.err
}

func (m *mockCloser) Close(context.Context, uuid.UUID) (*payout.Result, error) {
	return m.result, m.err
}

// mockFileStore records uploads and deletions in memory.
type mockFileStore struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (m *mockFileStore) Upload(_ context.Context, key, _ string, body io.Reader) error {
	_, _ = io.Copy(io.Discard, body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded = append(m.uploaded, key)
	return nil
}

func (m *mockFileStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockFileStore) ViewURL(key string) (string, error) {
	return "https://files.test/" + key + "?view", nil
}

func (m *mockFileStore) DownloadURL(key, filename string) (string, error) {
	return "https://files.test/" + key + "?dl=" + filename, nil
}

func newTaskHandler(repo *mockTaskRepo, closer *mockCloser) (*TaskHandler, *mockFileStore, *[]string) {
	store := &mockFileStore{}
	var enqueued []string
	var mu sync.Mutex
	h := &TaskHandler{
		Tasks:   repo,
		Payouts: closer,
		Files:   store,
		EnqueueDelete: func(_ context.Context, key string) error {
			mu.Lock()
			defer mu.Unlock()
			enqueued = append(enqueued, key)
			return nil
		},
		Logger: slog.Default(),
	}
	return h, store, &enqueued
}

// multipartBody builds a form with the given fields and an optional file part.
func multipartBody(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		_, _ = fw.Write([]byte("file contents"))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	repo := newMockTaskRepo()
	h, store, _ := newTaskHandler(repo, &mockCloser{})

	body, ct := multipartBody(t, map[string]string{
		"title":       "Design a logo",
		"description": "Vector format",
		"category":    "design",
		"level":       models.TaskLevelMedium,
		"price":       "500",
	}, "brief.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got models.Task
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != models.TaskStatusOpen {
		t.Errorf("status: got %s, want open", got.Status)
	}
	if got.Price != 500 {
		t.Errorf("price: got %d, want 500", got.Price)
	}
	if got.FileID == nil {
		t.Error("attachment key missing from response")
	}
	if len(store.uploaded) != 1 {
		t.Errorf("uploads: got %d, want 1", len(store.uploaded))
	}
	if _, err := repo.GetByID(context.Background(), got.ID); err != nil {
		t.Errorf("task not persisted: %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	h, _, _ := newTaskHandler(newMockTaskRepo(), &mockCloser{})

	// Missing title.
	body, ct := multipartBody(t, map[string]string{"price": "100"}, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title: got %d, want 400", rec.Code)
	}

	// Negative price.
	body, ct = multipartBody(t, map[string]string{"title": "x", "price": "-5"}, "")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative price: got %d, want 400", rec.Code)
	}
}

func TestUpdateTaskReplacesAttachment(t *testing.T) {
	oldKey := "old-key.pdf"
	task := &models.Task{ID: uuid.New(), Title: "Old title", Status: models.TaskStatusOpen, FileID: &oldKey}
	repo := newMockTaskRepo(task)
	h, store, enqueued := newTaskHandler(repo, &mockCloser{})

	body, ct := multipartBody(t, map[string]string{"title": "New title"}, "new.pdf")
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	stored, _ := repo.GetByID(context.Background(), task.ID)
	if stored.Title != "New title" {
		t.Errorf("title: got %s", stored.Title)
	}
	if stored.FileID == nil || *stored.FileID == oldKey {
		t.Errorf("attachment not replaced: %v", stored.FileID)
	}
	if len(store.uploaded) != 1 {
		t.Errorf("uploads: got %d, want 1", len(store.uploaded))
	}
	// Old attachment goes to the janitor.
	if len(*enqueued) != 1 || (*enqueued)[0] != oldKey {
		t.Errorf("enqueued deletions: got %v, want [%s]", *enqueued, oldKey)
	}
}

func TestUpdateClosedTaskRejected(t *testing.T) {
	task := &models.Task{ID: uuid.New(), Title: "Done", Status: models.TaskStatusClosed}
	h, _, _ := newTaskHandler(newMockTaskRepo(task), &mockCloser{})

	body, ct := multipartBody(t, map[string]string{"title": "nope"}, "")
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rec.Code)
	}
}

func TestDeleteTaskEnqueuesAttachmentCleanup(t *testing.T) {
	key := "attachment.zip"
	task := &models.Task{ID: uuid.New(), Title: "Old", Status: models.TaskStatusOpen, FileID: &key}
	repo := newMockTaskRepo(task)
	h, _, enqueued := newTaskHandler(repo, &mockCloser{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil)
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if _, err := repo.GetByID(context.Background(), task.ID); err == nil {
		t.Error("task still present after delete")
	}
	if len(*enqueued) != 1 || (*enqueued)[0] != key {
		t.Errorf("enqueued deletions: got %v, want [%s]", *enqueued, key)
	}
}

func TestCloseTask(t *testing.T) {
	taskID := uuid.New()
	res := &payout.Result{TaskID: taskID, Price: 100, ApprovedCount: 2, PayoutPerUser: 50, PaidCount: 2}
	h, _, _ := newTaskHandler(newMockTaskRepo(), &mockCloser{result: res})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+taskID.String()+"/close", nil)
	rec := httptest.NewRecorder()
	h.Close(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Message == "" {
		t.Error("summary message missing from response")
	}
}

func TestCloseTaskConflict(t *testing.T) {
	h, _, _ := newTaskHandler(newMockTaskRepo(), &mockCloser{err: payout.ErrTaskNotOpen})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+uuid.New().String()+"/close", nil)
	rec := httptest.NewRecorder()
	h.Close(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rec.Code)
	}
}

func TestClosePreview(t *testing.T) {
	prev := &payout.Preview{TaskID: uuid.New(), Price: 100, ApprovedCount: 2, PendingCount: 1, PayoutPerUser: 50}
	h, _, _ := newTaskHandler(newMockTaskRepo(), &mockCloser{preview: prev})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+prev.TaskID.String()+"/close-preview", nil)
	rec := httptest.NewRecorder()
	h.ClosePreview(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Message != prev.Message() {
		t.Errorf("message: got %q, want %q", body.Message, prev.Message())
	}
}
