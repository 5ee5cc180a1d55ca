package repositories

import (
	"context"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// WalletRepository defines the interface for wallets and their ledger
type WalletRepository interface {
	// Create creates a wallet
	Create(ctx context.Context, wallet *entities.Wallet) error

	// GetByUserID retrieves the wallet owned by a user
	GetByUserID(ctx context.Context, userID string) (*entities.Wallet, error)

	// GetByUserIDForUpdate retrieves the wallet and locks it until the transaction ends
	GetByUserIDForUpdate(ctx context.Context, userID string) (*entities.Wallet, error)

	// Debit atomically subtracts amount from an active wallet holding at least amount.
	// It returns the new balance or an INSUFFICIENT_FUNDS error when the guard fails.
	Debit(ctx context.Context, walletID string, amount int64) (int64, error)

	// Credit atomically adds amount to an active wallet and returns the new balance
	Credit(ctx context.Context, walletID string, amount int64) (int64, error)

	// AppendTransaction stores an immutable ledger entry
	AppendTransaction(ctx context.Context, tx *entities.WalletTransaction) error

	// ListTransactions retrieves ledger entries newest first
	ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]*entities.WalletTransaction, error)
}
