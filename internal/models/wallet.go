package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransactionType classifies ledger entries.
type WalletTransactionType string

const (
	WalletTxPurchase WalletTransactionType = "PURCHASE"
	WalletTxReserve  WalletTransactionType = "RESERVE"
)

// Wallet holds a student's exam credits. Balance is a denormalised running
// total; the wallet_transactions ledger is the source of truth for history.
type Wallet struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Reserved  decimal.Decimal `db:"reserved" json:"reserved"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// WalletTransaction is an append-only ledger entry. Never mutated.
type WalletTransaction struct {
	ID          string                `db:"id" json:"id"`
	WalletID    string                `db:"wallet_id" json:"wallet_id"`
	Amount      decimal.Decimal       `db:"amount" json:"amount"`
	Type        WalletTransactionType `db:"type" json:"type"`
	Description string                `db:"description" json:"description"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}
