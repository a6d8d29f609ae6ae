package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskkart/backend/internal/models"
)

// StatsHandler serves GET /api/v1/stats (admin overview).
type StatsHandler struct {
	Tasks interface {
		CountByStatus(ctx context.Context, status string) (int, error)
	}
	Subs interface {
		Count(ctx context.Context) (int, error)
	}
	Txns interface {
		TotalDistributed(ctx context.Context) (int, error)
	}
	Logger *slog.Logger
}

type statsResponse struct {
	OpenTasks        int `json:"open_tasks"`
	ClosedTasks      int `json:"closed_tasks"`
	Submissions      int `json:"submissions"`
	TotalDistributed int `json:"total_distributed"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	open, err := h.Tasks.CountByStatus(r.Context(), models.TaskStatusOpen)
	if err != nil {
		h.Logger.Error("count open tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	closed, err := h.Tasks.CountByStatus(r.Context(), models.TaskStatusClosed)
	if err != nil {
		h.Logger.Error("count closed tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	subs, err := h.Subs.Count(r.Context())
	if err != nil {
		h.Logger.Error("count submissions", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	distributed, err := h.Txns.TotalDistributed(r.Context())
	if err != nil {
		h.Logger.Error("sum distributed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		OpenTasks:        open,
		ClosedTasks:      closed,
		Submissions:      subs,
		TotalDistributed: distributed,
	})
}
