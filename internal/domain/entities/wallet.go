package entities

import "time"

// Wallet holds a user's prepaid balance in the smallest currency unit
type Wallet struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CanDebit reports whether the wallet is active and holds at least amount
func (w *Wallet) CanDebit(amount int64) bool {
	return w.IsActive && w.Balance >= amount
}

// TransactionType classifies a wallet ledger entry
type TransactionType string

const (
	TransactionTypeAppointmentPayment TransactionType = "AppointmentPayment"
	TransactionTypeAppointmentRefund  TransactionType = "AppointmentRefund"
	TransactionTypeAppointmentPayout  TransactionType = "AppointmentPayout"
	TransactionTypeTopUp              TransactionType = "TopUp"
)

// IsDebit reports whether entries of this type reduce the balance
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeAppointmentPayment
}

// TransactionStatus is the settlement state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusSucceeded TransactionStatus = "Succeeded"
)

// WalletTransaction is an immutable ledger entry. Amount is always positive;
// BalanceBefore and BalanceAfter carry the direction.
type WalletTransaction struct {
	ID                  string            `json:"id" db:"id"`
	WalletID            string            `json:"walletId" db:"wallet_id"`
	Amount              int64             `json:"amount" db:"amount"`
	BalanceBefore       int64             `json:"balanceBefore" db:"balance_before"`
	BalanceAfter        int64             `json:"balanceAfter" db:"balance_after"`
	TransactionTypeCode TransactionType   `json:"transactionTypeCode" db:"transaction_type_code"`
	Status              TransactionStatus `json:"status" db:"status"`
	ReferenceID         *string           `json:"referenceId,omitempty" db:"reference_id"`
	Description         string            `json:"description,omitempty" db:"description"`
	CreatedAt           time.Time         `json:"createdAt" db:"created_at"`
}

// Consistent reports whether the recorded balances match the amount and direction
func (t *WalletTransaction) Consistent() bool {
	if t.TransactionTypeCode.IsDebit() {
		return t.BalanceAfter == t.BalanceBefore-t.Amount
	}
	return t.BalanceAfter == t.BalanceBefore+t.Amount
}
