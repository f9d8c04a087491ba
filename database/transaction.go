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
	"sort"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/davidenwere/kobo/internal/apierror"
	"github.com/davidenwere/kobo/model"
)

// ApplyTransaction moves money and records the ledger entry as one database
// transaction. The touched account rows are locked FOR UPDATE in account_id
// order, the balance math runs against the locked rows, and the new balances
// and the ledger row commit together. Either everything lands or nothing
// does.
func (d Datasource) ApplyTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("kobo.database").Start(ctx, "Applying transaction")
	defer span.End()

	txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	txn.CreatedAt = time.Now()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	// Locking in sorted account_id order keeps concurrent transfers that
	// touch the same pair of accounts from deadlocking each other.
	ids := []string{txn.Source}
	if txn.Destination != "" && txn.Destination != txn.Source {
		ids = append(ids, txn.Destination)
	}
	sort.Strings(ids)

	locked := make(map[string]*model.Account, len(ids))
	for _, id := range ids {
		row := tx.QueryRowContext(ctx, `
			SELECT account_id, number, account_type, balance, user_id, active, created_at, updated_at
			FROM accounts
			WHERE account_id = $1
			FOR UPDATE
		`, id)
		account, err := scanAccountRow(row, id)
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}

	source := locked[txn.Source]
	var destination *model.Account
	if txn.Destination != "" {
		destination = locked[txn.Destination]
	}

	if err := model.UpdateBalances(txn, source, destination); err != nil {
		return nil, mapBalanceError(err)
	}

	for _, id := range ids {
		account := locked[id]
		_, err = tx.ExecContext(ctx, `
			UPDATE accounts SET balance = $2, updated_at = $3 WHERE account_id = $1
		`, account.AccountID, account.Balance, txn.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account balance", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, reference, source_account_id, destination_account_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, txn.TransactionID, txn.Reference, txn.Source, nullString(txn.Destination), txn.Amount, txn.Type, txn.Description, txn.CreatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Transaction reference already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	txn.SourceNumber = source.Number
	if destination != nil {
		txn.DestinationNumber = destination.Number
	}
	txn.BalanceAfter = source.Balance

	numbers := []string{source.Number}
	if destination != nil {
		numbers = append(numbers, destination.Number)
	}
	d.invalidateAccountCache(ctx, numbers...)

	return txn, nil
}

// mapBalanceError translates the balance math sentinels onto the API error
// taxonomy.
func mapBalanceError(err error) error {
	switch err {
	case model.ErrInsufficientFunds:
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, "Insufficient funds in source account", err)
	case model.ErrAccountInactive:
		return apierror.NewAPIError(apierror.ErrInvalidState, "Account is not active", err)
	case model.ErrInvalidAmount, model.ErrSameAccount, model.ErrMissingAccount:
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	default:
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to process transaction", err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetTransaction retrieves a ledger entry by its ID.
func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, transactionSelect+` WHERE t.transaction_id = $1`, id)
	return scanTransactionRow(row, id)
}

// GetTransactionByRef retrieves a ledger entry by its reference.
func (d Datasource) GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, transactionSelect+` WHERE t.reference = $1`, reference)
	return scanTransactionRow(row, reference)
}

const transactionSelect = `
	SELECT t.transaction_id, t.reference, t.source_account_id, t.destination_account_id,
	       sa.number, da.number, t.amount, t.transaction_type, t.description, t.created_at
	FROM transactions t
	JOIN accounts sa ON sa.account_id = t.source_account_id
	LEFT JOIN accounts da ON da.account_id = t.destination_account_id`

func scanTransactionRow(row *sql.Row, ref string) (*model.Transaction, error) {
	txn := model.Transaction{}
	var destinationID, destinationNumber sql.NullString
	err := row.Scan(&txn.TransactionID, &txn.Reference, &txn.Source, &destinationID,
		&txn.SourceNumber, &destinationNumber, &txn.Amount, &txn.Type, &txn.Description, &txn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	txn.Destination = destinationID.String
	txn.DestinationNumber = destinationNumber.String
	return &txn, nil
}

// GetTransactionsByAccount retrieves ledger entries where the account is the
// source or the destination, newest first.
func (d Datasource) GetTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, error) {
	ctx, span := otel.Tracer("kobo.database").Start(ctx, "Fetching transactions by account with pagination")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, transactionSelect+`
		WHERE t.source_account_id = $1 OR t.destination_account_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn := model.Transaction{}
		var destinationID, destinationNumber sql.NullString
		err = rows.Scan(&txn.TransactionID, &txn.Reference, &txn.Source, &destinationID,
			&txn.SourceNumber, &destinationNumber, &txn.Amount, &txn.Type, &txn.Description, &txn.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction row", err)
		}
		txn.Destination = destinationID.String
		txn.DestinationNumber = destinationNumber.String
		transactions = append(transactions, txn)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating transaction rows", err)
	}

	return transactions, nil
}

// CountTransactionsByAccount returns the total number of ledger entries
// touching an account, for pagination metadata.
func (d Datasource) CountTransactionsByAccount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE source_account_id = $1 OR destination_account_id = $1
	`, accountID).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count transactions", err)
	}
	return count, nil
}
