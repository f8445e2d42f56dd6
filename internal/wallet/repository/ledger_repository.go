package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/mysql"
)

// MySQLLedgerRepository owns Users.walletBalance. No other code writes that column.
type MySQLLedgerRepository struct {
	txm *mysql.TxManager
}

func NewMySQLLedgerRepository(txm *mysql.TxManager) *MySQLLedgerRepository {
	return &MySQLLedgerRepository{txm: txm}
}

func (r *MySQLLedgerRepository) GetBalance(ctx context.Context, userID int) (decimal.Decimal, error) {
	query := `SELECT walletBalance FROM Users WHERE id = ?`

	var balance decimal.Decimal
	err := r.txm.Conn(ctx).QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, apperrors.NewNotFoundError(fmt.Sprintf("user with id %d not found", userID))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying wallet balance: %w", err)
	}

	return balance, nil
}

// Debit subtracts amount under a row lock on the user, joining the caller's transaction
// when there is one. The funds check reads the locked row, never an earlier snapshot.
func (r *MySQLLedgerRepository) Debit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("debit amount must be positive", apperrors.ValidationDetail{
			Field:   "amount",
			Message: "amount must be greater than 0",
		})
	}

	var newBalance decimal.Decimal
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		balance, err := r.findBalanceForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if balance.LessThan(amount) {
			return apperrors.NewInsufficientFundsError(userID, balance, amount)
		}

		if err := r.applyDelta(ctx, userID, amount.Neg()); err != nil {
			return err
		}

		newBalance = balance.Sub(amount)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

// Credit adds amount under the same row lock. A balance that would exceed
// domain.MaxAmount is rejected.
func (r *MySQLLedgerRepository) Credit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError("credit amount must be positive", apperrors.ValidationDetail{
			Field:   "amount",
			Message: "amount must be greater than 0",
		})
	}

	var newBalance decimal.Decimal
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		balance, err := r.findBalanceForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		next := balance.Add(amount)
		if next.GreaterThan(domain.MaxAmount) {
			return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
		}

		if err := r.applyDelta(ctx, userID, amount); err != nil {
			return err
		}

		newBalance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

func (r *MySQLLedgerRepository) findBalanceForUpdate(ctx context.Context, userID int) (decimal.Decimal, error) {
	query := `SELECT walletBalance FROM Users WHERE id = ? FOR UPDATE`

	var balance decimal.Decimal
	err := r.txm.Conn(ctx).QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, apperrors.NewNotFoundError(fmt.Sprintf("user with id %d not found", userID))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("locking wallet row: %w", err)
	}

	return balance, nil
}

func (r *MySQLLedgerRepository) applyDelta(ctx context.Context, userID int, delta decimal.Decimal) error {
	query := `UPDATE Users SET walletBalance = walletBalance + ? WHERE id = ?`

	result, err := r.txm.Conn(ctx).ExecContext(ctx, query, delta, userID)
	if mysql.IsOutOfRange(err) {
		return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
	}
	if err != nil {
		return fmt.Errorf("updating wallet balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %d not found", userID))
	}

	return nil
}
