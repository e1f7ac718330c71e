package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// WalletRepository handles wallet and ledger persistence. Balance
// mutations must go through a transaction that holds the row lock
// acquired by LockForUpdate.
type WalletRepository struct {
	q db.Querier
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(q db.Querier) *WalletRepository {
	return &WalletRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *WalletRepository) WithTx(tx pgx.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByUserID retrieves a user's wallet without locking it.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// GetOrCreate retrieves the wallet, creating it with a zero balance if
// the user has none yet.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	const insert = `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

// LockForUpdate ensures the wallet row exists and acquires its row lock.
// Must run inside a transaction.
func (r *WalletRepository) LockForUpdate(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	const insert = `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}

	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return wallet, nil
}

// UpdateBalance applies the signed delta to a locked wallet row and
// returns the updated wallet.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (*model.Wallet, error) {
	const query = `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, walletID, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return wallet, nil
}

// AppendTransaction appends one signed ledger row for the wallet.
func (r *WalletRepository) AppendTransaction(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, txType string, description *string) (*model.WalletTransaction, error) {
	const query = `
		INSERT INTO wallet_transactions (id, wallet_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, wallet_id, amount, transaction_type, description, created_at
	`

	var wt model.WalletTransaction
	err := r.q.QueryRow(ctx, query, uuid.New(), walletID, amount, txType, description).Scan(
		&wt.ID, &wt.WalletID, &wt.Amount, &wt.TransactionType, &wt.Description, &wt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return &wt, nil
}

// ListTransactions returns the wallet's ledger, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]*model.WalletTransaction, error) {
	const query = `
		SELECT id, wallet_id, amount, transaction_type, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.WalletTransaction
	for rows.Next() {
		var wt model.WalletTransaction
		err := rows.Scan(&wt.ID, &wt.WalletID, &wt.Amount, &wt.TransactionType, &wt.Description, &wt.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, &wt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}
	return transactions, nil
}

// SumTransactions returns the signed sum over the wallet's ledger.
// The result must equal the wallet balance at all times.
func (r *WalletRepository) SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1
	`

	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum wallet transactions: %w", err)
	}
	return sum, nil
}
