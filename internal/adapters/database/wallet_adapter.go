package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

const (
	walletsTable            = "wallets"
	walletTransactionsTable = "wallet_transactions"
)

var walletColumns = []interface{}{"id", "user_id", "balance", "is_active", "created_at", "updated_at"}

var walletTransactionColumns = []interface{}{
	"id", "wallet_id", "amount", "balance_before", "balance_after",
	"transaction_type_code", "status", "reference_id", "description", "created_at",
}

// WalletAdapter implements WalletRepository
type WalletAdapter struct {
	q queryer
}

var _ repositories.WalletRepository = (*WalletAdapter)(nil)

// NewWalletAdapter creates a new wallet adapter
func NewWalletAdapter(client *postgres.Client) *WalletAdapter {
	return &WalletAdapter{q: client.DB()}
}

// Create creates a wallet
func (a *WalletAdapter) Create(ctx context.Context, wallet *entities.Wallet) error {
	now := time.Now().UTC()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now

	query, args, err := dialect.Insert(walletsTable).Prepared(true).Rows(goqu.Record{
		"id":         wallet.ID,
		"user_id":    wallet.UserID,
		"balance":    wallet.Balance,
		"is_active":  wallet.IsActive,
		"created_at": wallet.CreatedAt,
		"updated_at": wallet.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("user already has a wallet")
		}
		return dbError("failed to create wallet", err)
	}
	return nil
}

// GetByUserID retrieves the wallet owned by a user
func (a *WalletAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Wallet, error) {
	return a.getByUserID(ctx, userID, false)
}

// GetByUserIDForUpdate retrieves the wallet and holds a row lock until the transaction ends
func (a *WalletAdapter) GetByUserIDForUpdate(ctx context.Context, userID string) (*entities.Wallet, error) {
	return a.getByUserID(ctx, userID, true)
}

func (a *WalletAdapter) getByUserID(ctx context.Context, userID string, lock bool) (*entities.Wallet, error) {
	ds := dialect.From(walletsTable).Prepared(true).
		Select(walletColumns...).
		Where(goqu.Ex{"user_id": userID})
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	wallet := &entities.Wallet{}
	err = a.q.QueryRowContext(ctx, query, args...).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.IsActive,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("wallet for user %s not found", userID))
	}
	if err != nil {
		return nil, dbError("failed to get wallet", err)
	}
	return wallet, nil
}

// Debit subtracts amount only if the wallet is active and the balance covers it
func (a *WalletAdapter) Debit(ctx context.Context, walletID string, amount int64) (int64, error) {
	query, args, err := dialect.Update(walletsTable).Prepared(true).
		Set(goqu.Record{
			"balance":    goqu.L("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		}).
		Where(
			goqu.Ex{"id": walletID, "is_active": true},
			goqu.C("balance").Gte(amount),
		).
		Returning("balance").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build debit query", err)
	}

	var balance int64
	err = a.q.QueryRowContext(ctx, query, args...).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewInsufficientFundsError()
	}
	if err != nil {
		if isCheckViolation(err) {
			return 0, apperrors.NewInsufficientFundsError()
		}
		return 0, apperrors.NewPaymentError(err)
	}
	return balance, nil
}

// Credit adds amount to an active wallet
func (a *WalletAdapter) Credit(ctx context.Context, walletID string, amount int64) (int64, error) {
	query, args, err := dialect.Update(walletsTable).Prepared(true).
		Set(goqu.Record{
			"balance":    goqu.L("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": walletID, "is_active": true}).
		Returning("balance").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build credit query", err)
	}

	var balance int64
	err = a.q.QueryRowContext(ctx, query, args...).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("active wallet %s not found", walletID))
	}
	if err != nil {
		return 0, apperrors.NewPaymentError(err)
	}
	return balance, nil
}

// AppendTransaction stores an immutable ledger entry
func (a *WalletAdapter) AppendTransaction(ctx context.Context, tx *entities.WalletTransaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query, args, err := dialect.Insert(walletTransactionsTable).Prepared(true).Rows(goqu.Record{
		"id":                    tx.ID,
		"wallet_id":             tx.WalletID,
		"amount":                tx.Amount,
		"balance_before":        tx.BalanceBefore,
		"balance_after":         tx.BalanceAfter,
		"transaction_type_code": string(tx.TransactionTypeCode),
		"status":                string(tx.Status),
		"reference_id":          nullStringPtr(tx.ReferenceID),
		"description":           nullString(tx.Description),
		"created_at":            tx.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPaymentError(err)
	}
	return nil
}

// ListTransactions retrieves ledger entries newest first
func (a *WalletAdapter) ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]*entities.WalletTransaction, error) {
	ds := dialect.From(walletTransactionsTable).Prepared(true).
		Select(walletTransactionColumns...).
		Where(goqu.Ex{"wallet_id": walletID}).
		Order(goqu.C("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list wallet transactions", err)
	}
	defer rows.Close()

	transactions := make([]*entities.WalletTransaction, 0)
	for rows.Next() {
		tx := &entities.WalletTransaction{}
		var referenceID, description sql.NullString
		if err := rows.Scan(
			&tx.ID,
			&tx.WalletID,
			&tx.Amount,
			&tx.BalanceBefore,
			&tx.BalanceAfter,
			&tx.TransactionTypeCode,
			&tx.Status,
			&referenceID,
			&description,
			&tx.CreatedAt,
		); err != nil {
			return nil, dbError("failed to scan wallet transaction", err)
		}
		tx.ReferenceID = stringPtr(referenceID)
		tx.Description = description.String
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate wallet transactions", err)
	}
	return transactions, nil
}
