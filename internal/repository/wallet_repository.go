package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/aeropoint/academy-api/internal/models"
)

const walletColumns = `id, student_id, balance, reserved, created_at, updated_at`

// WalletRepository manages wallets and their append-only ledger.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository constructs the repository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// FindByStudent returns the wallet owned by a student.
func (r *WalletRepository) FindByStudent(ctx context.Context, studentID string) (*models.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE student_id = $1`, walletColumns)
	var wallet models.Wallet
	if err := r.db.GetContext(ctx, &wallet, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	return &wallet, nil
}

// ListTransactions returns the ledger for a wallet, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error) {
	const query = `SELECT id, wallet_id, amount, type, description, created_at FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC`
	var txs []models.WalletTransaction
	if err := r.db.SelectContext(ctx, &txs, query, walletID); err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	return txs, nil
}

// UpsertForStudentTx loads-or-creates the student's wallet under a row lock.
// The lock serializes concurrent credits and reservations on one wallet.
func (r *WalletRepository) UpsertForStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.Wallet, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO wallets (id, student_id, balance, reserved, created_at, updated_at)
        VALUES ($1, $2, 0, 0, $3, $3)
        ON CONFLICT (student_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), studentID, now); err != nil {
		return nil, fmt.Errorf("upsert wallet: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE student_id = $1 FOR UPDATE`, walletColumns)
	var wallet models.Wallet
	if err := tx.GetContext(ctx, &wallet, query, studentID); err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &wallet, nil
}

// CreditTx increments the wallet balance.
func (r *WalletRepository) CreditTx(ctx context.Context, tx *sqlx.Tx, walletID string, amount decimal.Decimal) error {
	const query = `UPDATE wallets SET balance = balance + $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, walletID, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}

// ReserveTx moves funds from balance to reserved for a seat hold.
func (r *WalletRepository) ReserveTx(ctx context.Context, tx *sqlx.Tx, walletID string, amount decimal.Decimal) error {
	const query = `UPDATE wallets SET balance = balance - $2, reserved = reserved + $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, walletID, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("reserve wallet funds: %w", err)
	}
	return nil
}

// AppendTransactionTx writes one immutable ledger entry.
func (r *WalletRepository) AppendTransactionTx(ctx context.Context, tx *sqlx.Tx, entry *models.WalletTransaction) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO wallet_transactions (id, wallet_id, amount, type, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, entry.ID, entry.WalletID, entry.Amount, entry.Type, entry.Description, entry.CreatedAt); err != nil {
		return fmt.Errorf("append wallet transaction: %w", err)
	}
	return nil
}
