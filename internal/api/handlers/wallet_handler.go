package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// WalletService defines the wallet operations used by the handler
type WalletService interface {
	GetWallet(ctx context.Context, userID string) (*entities.Wallet, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*entities.WalletTransaction, error)
	Credit(ctx context.Context, userID string, amount int64, description string, actor services.Actor) (*entities.WalletTransaction, error)
}

// WalletHandler handles wallet requests
type WalletHandler struct {
	service WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(service WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

// GetMyWallet handles GET /api/wallets/me
func (h *WalletHandler) GetMyWallet(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), actor.UserID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, wallet)
}

// ListMyTransactions handles GET /api/wallets/me/transactions?limit=&offset=
func (h *WalletHandler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	fields := map[string]string{}
	limit := parseIntParam(r, "limit", fields)
	offset := parseIntParam(r, "offset", fields)
	if len(fields) > 0 {
		respondWithAppError(w, r, apperrors.NewFieldValidationError(fields))
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// Credit handles POST /api/wallets/{userId}/credit
func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userId")
	if !ok {
		return
	}

	var req CreditWalletRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	entry, err := h.service.Credit(r.Context(), userID, req.Amount, req.Description, actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}
