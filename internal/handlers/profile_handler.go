package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskkart/backend/internal/middleware"
	"github.com/taskkart/backend/internal/models"
)

// ProfileUpdater persists editable profile fields.
type ProfileUpdater interface {
	ProfileReader
	UpdateDetails(ctx context.Context, p *models.UserProfile) error
}

// ProfileHandler serves /api/v1/profile.
type ProfileHandler struct {
	Profiles ProfileUpdater
	Logger   *slog.Logger
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	profile, err := h.Profiles.GetByUserID(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("load profile", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, `{"error":"profile not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	UPIID *string `json:"upi_id"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.Profiles.GetByUserID(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("load profile", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, `{"error":"profile not found"}`, http.StatusNotFound)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			http.Error(w, `{"error":"name cannot be empty"}`, http.StatusBadRequest)
			return
		}
		profile.Name = *req.Name
	}
	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if req.UPIID != nil {
		profile.UPIID = req.UPIID
	}

	if err := h.Profiles.UpdateDetails(r.Context(), profile); err != nil {
		h.Logger.Error("update profile", "error", err)
		http.Error(w, `{"error":"failed to update profile"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
