package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
)

// postDebit debits the wallet and appends the matching ledger entry
func postDebit(
	ctx context.Context,
	wallets repositories.WalletRepository,
	wallet *entities.Wallet,
	amount int64,
	txType entities.TransactionType,
	referenceID *string,
	description string,
) (*entities.WalletTransaction, error) {
	balance, err := wallets.Debit(ctx, wallet.ID, amount)
	if err != nil {
		return nil, err
	}

	entry := &entities.WalletTransaction{
		ID:                  uuid.NewString(),
		WalletID:            wallet.ID,
		Amount:              amount,
		BalanceBefore:       balance + amount,
		BalanceAfter:        balance,
		TransactionTypeCode: txType,
		Status:              entities.TransactionStatusSucceeded,
		ReferenceID:         referenceID,
		Description:         description,
	}
	if err := wallets.AppendTransaction(ctx, entry); err != nil {
		return nil, err
	}
	wallet.Balance = balance
	return entry, nil
}

// postCredit credits the wallet and appends the matching ledger entry
func postCredit(
	ctx context.Context,
	wallets repositories.WalletRepository,
	wallet *entities.Wallet,
	amount int64,
	txType entities.TransactionType,
	referenceID *string,
	description string,
) (*entities.WalletTransaction, error) {
	balance, err := wallets.Credit(ctx, wallet.ID, amount)
	if err != nil {
		return nil, err
	}

	entry := &entities.WalletTransaction{
		ID:                  uuid.NewString(),
		WalletID:            wallet.ID,
		Amount:              amount,
		BalanceBefore:       balance - amount,
		BalanceAfter:        balance,
		TransactionTypeCode: txType,
		Status:              entities.TransactionStatusSucceeded,
		ReferenceID:         referenceID,
		Description:         description,
	}
	if err := wallets.AppendTransaction(ctx, entry); err != nil {
		return nil, err
	}
	wallet.Balance = balance
	return entry, nil
}
