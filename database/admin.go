package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidenwere/kobo/internal/apierror"
)

func (d Datasource) countRow(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count int64
	err := d.Conn.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to run count query", err)
	}
	return count, nil
}

func (d Datasource) CountUsers(ctx context.Context) (int64, error) {
	return d.countRow(ctx, `SELECT COUNT(*) FROM users`)
}

func (d Datasource) CountActiveUsers(ctx context.Context) (int64, error) {
	return d.countRow(ctx, `SELECT COUNT(*) FROM users WHERE enabled = TRUE`)
}

// CountUsersCreatedAfter backs the "new signups today" dashboard figure.
func (d Datasource) CountUsersCreatedAfter(ctx context.Context, t time.Time) (int64, error) {
	return d.countRow(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, t)
}

func (d Datasource) CountAccounts(ctx context.Context) (int64, error) {
	return d.countRow(ctx, `SELECT COUNT(*) FROM accounts`)
}

func (d Datasource) CountTransactions(ctx context.Context) (int64, error) {
	return d.countRow(ctx, `SELECT COUNT(*) FROM transactions`)
}

// SumAccountBalances totals the money currently held across all accounts.
func (d Datasource) SumAccountBalances(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := d.Conn.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&sum)
	if err != nil {
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum account balances", err)
	}
	return sum, nil
}
