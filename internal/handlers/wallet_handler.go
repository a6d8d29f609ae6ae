package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskkart/backend/internal/middleware"
	"github.com/taskkart/backend/internal/models"
)

// ProfileReader looks up the wallet owner.
type ProfileReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

// TransactionLister lists a user's wallet history.
type TransactionLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// WalletHandler serves GET /api/v1/wallet.
type WalletHandler struct {
	Profiles ProfileReader
	Txns     TransactionLister
	Logger   *slog.Logger
}

type walletResponse struct {
	Balance      int                   `json:"balance"`
	UPIID        *string               `json:"upi_id,omitempty"`
	Transactions []*models.Transaction `json:"transactions"`
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	profile, err := h.Profiles.GetByUserID(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("load profile for wallet", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, `{"error":"profile not found"}`, http.StatusNotFound)
		return
	}

	txns, err := h.Txns.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		h.Logger.Error("list transactions", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}

	writeJSON(w, http.StatusOK, walletResponse{
		Balance:      profile.Balance,
		UPIID:        profile.UPIID,
		Transactions: txns,
	})
}
