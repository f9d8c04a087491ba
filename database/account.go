/*
Copyright 2024 Kobo Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/davidenwere/kobo/internal/apierror"
	"github.com/davidenwere/kobo/model"
)

// account lookups by number sit on the hot path of every transaction, so
// GetAccountByNumber is backed by a short-lived cache entry. Writes that
// change an account go through invalidateAccountCache.
const accountCacheTTL = 30 * time.Second

func accountCacheKey(number string) string {
	return fmt.Sprintf("account:number:%s", number)
}

// CreateAccount inserts a new Account into the database. The caller supplies
// the generated account number; a unique_violation on the number column is
// surfaced as ErrConflict so the caller can regenerate and retry.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO accounts (account_id, number, account_type, balance, user_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.AccountID, account.Number, account.Type, account.Balance, account.UserID, account.Active, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, "Account number already exists", err)
			case "foreign_key_violation":
				return model.Account{}, apierror.NewAPIError(apierror.ErrNotFound, "Owning user does not exist", err)
			default:
				return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	return account, nil
}

// GetAccountByID retrieves an account by its ID.
func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, number, account_type, balance, user_id, active, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`, id)

	return scanAccountRow(row, id)
}

// GetAccountByNumber retrieves an account by its account number, consulting
// the cache first when one is configured.
func (d Datasource) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	if d.Cache != nil {
		cached := &model.Account{}
		if err := d.Cache.Get(ctx, accountCacheKey(number), cached); err == nil && cached.AccountID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, number, account_type, balance, user_id, active, created_at, updated_at
		FROM accounts
		WHERE number = $1
	`, number)

	account, err := scanAccountRow(row, number)
	if err != nil {
		return nil, err
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, accountCacheKey(number), account, accountCacheTTL)
	}
	return account, nil
}

func scanAccountRow(row *sql.Row, ref string) (*model.Account, error) {
	account := model.Account{}
	err := row.Scan(&account.AccountID, &account.Number, &account.Type, &account.Balance, &account.UserID, &account.Active, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return &account, nil
}

// GetAccountsByUser retrieves every account owned by a user, oldest first.
func (d Datasource) GetAccountsByUser(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_id, number, account_type, balance, user_id, active, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectAccountRows(rows)
}

// GetAllAccounts lists accounts across all users for the admin surface.
func (d Datasource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_id, number, account_type, balance, user_id, active, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectAccountRows(rows)
}

func collectAccountRows(rows *sql.Rows) ([]model.Account, error) {
	accounts := []model.Account{}
	for rows.Next() {
		account := model.Account{}
		err := rows.Scan(&account.AccountID, &account.Number, &account.Type, &account.Balance, &account.UserID, &account.Active, &account.CreatedAt, &account.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account row", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating account rows", err)
	}
	return accounts, nil
}

// UpdateAccountStatus activates or deactivates an account.
func (d Datasource) UpdateAccountStatus(ctx context.Context, id string, active bool) error {
	account, err := d.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE accounts SET active = $2, updated_at = $3 WHERE account_id = $1
	`, id, active, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account status", err)
	}
	if err := checkRowsAffected(result, fmt.Sprintf("Account '%s' not found", id)); err != nil {
		return err
	}

	d.invalidateAccountCache(ctx, account.Number)
	return nil
}

// DeleteAccount removes an account row. The engine only calls this for
// inactive accounts with a zero balance.
func (d Datasource) DeleteAccount(ctx context.Context, id string) error {
	account, err := d.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}

	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM accounts WHERE account_id = $1
	`, id)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "foreign_key_violation" {
			return apierror.NewAPIError(apierror.ErrInvalidState, "Account has transaction history and cannot be deleted", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete account", err)
	}
	if err := checkRowsAffected(result, fmt.Sprintf("Account '%s' not found", id)); err != nil {
		return err
	}

	d.invalidateAccountCache(ctx, account.Number)
	return nil
}

func (d Datasource) invalidateAccountCache(ctx context.Context, numbers ...string) {
	if d.Cache == nil {
		return
	}
	for _, number := range numbers {
		_ = d.Cache.Delete(ctx, accountCacheKey(number))
	}
}
