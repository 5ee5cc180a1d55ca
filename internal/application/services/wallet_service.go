package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

const maxLedgerPage = 100

// WalletService exposes wallet balances, the ledger and manager top-ups
type WalletService struct {
	transactor repositories.Transactor
	wallets    repositories.WalletRepository
	metrics    *observability.Metrics
}

// NewWalletService creates a new wallet service
func NewWalletService(transactor repositories.Transactor, wallets repositories.WalletRepository, metrics *observability.Metrics) *WalletService {
	return &WalletService{transactor: transactor, wallets: wallets, metrics: metrics}
}

// GetWallet returns the wallet owned by userID
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	return s.wallets.GetByUserID(ctx, userID)
}

// ListTransactions returns the ledger of the user's wallet, newest first
func (s *WalletService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*entities.WalletTransaction, error) {
	if limit <= 0 || limit > maxLedgerPage {
		limit = maxLedgerPage
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.wallets.ListTransactions(ctx, wallet.ID, limit, offset)
}

// OpenWallet creates an active wallet with an optional opening balance recorded as a top-up
func (s *WalletService) OpenWallet(ctx context.Context, userID string, openingBalance int64) (*entities.Wallet, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewFieldValidationError(map[string]string{"userId": "required"})
	}
	if openingBalance < 0 {
		return nil, apperrors.NewFieldValidationError(map[string]string{"balance": "must not be negative"})
	}

	wallet := &entities.Wallet{ID: uuid.NewString(), UserID: userID, IsActive: true}
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.Wallets().Create(ctx, wallet); err != nil {
			return err
		}
		if openingBalance == 0 {
			return nil
		}
		_, err := postCredit(ctx, uow.Wallets(), wallet, openingBalance, entities.TransactionTypeTopUp, nil, "Opening balance")
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Credit tops up the user's wallet. Staff only.
func (s *WalletService) Credit(ctx context.Context, userID string, amount int64, description string, actor Actor) (*entities.WalletTransaction, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError("only managers can credit wallets")
	}
	if amount <= 0 {
		return nil, apperrors.NewFieldValidationError(map[string]string{"amount": "must be positive"})
	}
	if strings.TrimSpace(description) == "" {
		description = "Wallet top-up"
	}

	var entry *entities.WalletTransaction
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !wallet.IsActive {
			return apperrors.NewValidationError("wallet is inactive")
		}
		entry, err = postCredit(ctx, uow.Wallets(), wallet, amount, entities.TransactionTypeTopUp, nil, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordLedgerEntry(ctx, s.metrics, string(entry.TransactionTypeCode), entry.Amount)
	observability.LoggerFromContext(ctx).Info().
		Str("user_id", userID).
		Str("actor", actor.UserID).
		Int64("amount", amount).
		Msg("Wallet credited")
	return entry, nil
}
