// Package service provides business logic implementations. Every
// state-mutating operation runs inside exactly one database transaction;
// derived writes (ledger rows, rewards, inventory effects) join the same
// transaction through the Tx-suffixed variants.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// DefaultCurrency is reported for wallets of users without a profile.
const DefaultCurrency = "IDR"

// Balance is the wallet read model returned to the player.
type Balance struct {
	Balance  decimal.Decimal
	Currency string
}

// WalletService is the wallet engine: balance reads, atomic
// credit/debit with ledger append, and ledger history.
type WalletService struct {
	pool        *db.Pool
	walletRepo  *repository.WalletRepository
	profileRepo *repository.ProfileRepository
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(pool *db.Pool, walletRepo *repository.WalletRepository, profileRepo *repository.ProfileRepository) *WalletService {
	return &WalletService{pool: pool, walletRepo: walletRepo, profileRepo: profileRepo}
}

// GetBalance returns the user's balance and display currency, creating
// the wallet lazily with a zero balance on first read.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	wallet, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	currency := DefaultCurrency
	if profile, err := s.profileRepo.GetByUserID(ctx, userID); err == nil {
		currency = profile.Currency
	} else if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, err
	}

	return &Balance{Balance: wallet.Balance, Currency: currency}, nil
}

// Credit adds amount to the user's wallet in its own transaction.
func (s *WalletService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType, description string) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		var err error
		wallet, err = s.CreditTx(ctx, tx, userID, amount, txType, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Debit subtracts amount from the user's wallet in its own transaction.
func (s *WalletService) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType, description string) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		var err error
		wallet, err = s.DebitTx(ctx, tx, userID, amount, txType, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// CreditTx credits the wallet inside the caller's transaction: lock or
// create the wallet row, apply the delta, append the signed ledger row.
func (s *WalletService) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, txType, description string) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	}

	repo := s.walletRepo.WithTx(tx)
	wallet, err := repo.LockForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	wallet, err = repo.UpdateBalance(ctx, wallet.ID, amount)
	if err != nil {
		return nil, err
	}

	desc := description
	if _, err := repo.AppendTransaction(ctx, wallet.ID, amount, txType, nilIfEmpty(desc)); err != nil {
		return nil, err
	}
	return wallet, nil
}

// DebitTx debits the wallet inside the caller's transaction. The
// balance check runs under the row lock, so a successful debit can
// never push the balance below zero.
func (s *WalletService) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, txType, description string) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	}

	repo := s.walletRepo.WithTx(tx)
	wallet, err := repo.LockForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance.LessThan(amount) {
		return nil, apperr.Newf(apperr.KindInsufficientFunds,
			"Insufficient funds: balance %s, needed %s", wallet.Balance.StringFixed(2), amount.StringFixed(2))
	}

	wallet, err = repo.UpdateBalance(ctx, wallet.ID, amount.Neg())
	if err != nil {
		if db.IsCheckViolation(err) {
			return nil, apperr.Wrap(apperr.KindInsufficientFunds, "Insufficient funds", err)
		}
		return nil, err
	}

	if _, err := repo.AppendTransaction(ctx, wallet.ID, amount.Neg(), txType, nilIfEmpty(description)); err != nil {
		return nil, err
	}
	return wallet, nil
}

// History returns the user's ledger, newest first. The wallet is
// created lazily like on a balance read.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*model.WalletTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.walletRepo.ListTransactions(ctx, wallet.ID, limit)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
