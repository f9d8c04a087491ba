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

package kobo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/davidenwere/kobo/internal/apierror"
	redlock "github.com/davidenwere/kobo/internal/lock"
	"github.com/davidenwere/kobo/internal/notification"
	"github.com/davidenwere/kobo/model"
)

var (
	tracer = otel.Tracer("kobo.engine")
)

// referenceRetries bounds regeneration when a generated reference collides
// with an existing ledger row.
const referenceRetries = 3

// Deposit credits an owned, active account.
func (k *Kobo) Deposit(ctx context.Context, email, accountNumber string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Deposit")
	defer span.End()

	account, err := k.authorizeAccount(ctx, email, accountNumber)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		Source:      account.AccountID,
		Amount:      amount,
		Type:        model.TypeDeposit,
		Description: description,
	}
	return k.applyWithLock(ctx, account.Number, txn)
}

// Withdraw debits an owned, active account with sufficient funds.
func (k *Kobo) Withdraw(ctx context.Context, email, accountNumber string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Withdraw")
	defer span.End()

	account, err := k.authorizeAccount(ctx, email, accountNumber)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		Source:      account.AccountID,
		Amount:      amount,
		Type:        model.TypeWithdrawal,
		Description: description,
	}
	return k.applyWithLock(ctx, account.Number, txn)
}

// Transfer moves money from an owned account to any active account. The
// destination need not belong to the caller. Both owners are notified after
// commit; notification failure never surfaces.
func (k *Kobo) Transfer(ctx context.Context, email, sourceNumber, destinationNumber string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transfer")
	defer span.End()

	if destinationNumber == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Destination account number is required", nil)
	}
	// Rejected before any lookup so a bad request never leaks whether the
	// account exists.
	if destinationNumber == sourceNumber {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Cannot transfer to the same account", nil)
	}

	source, err := k.authorizeAccount(ctx, email, sourceNumber)
	if err != nil {
		return nil, err
	}
	destination, err := k.datasource.GetAccountByNumber(ctx, destinationNumber)
	if err != nil {
		return nil, err
	}
	if !destination.Active {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState, "Destination account is not active", nil)
	}

	txn := &model.Transaction{
		Source:      source.AccountID,
		Destination: destination.AccountID,
		Amount:      amount,
		Type:        model.TypeTransfer,
		Description: description,
	}
	applied, err := k.applyWithLock(ctx, source.Number, txn)
	if err != nil {
		return nil, err
	}

	k.notifyTransfer(ctx, applied, source.UserID, destination.UserID)
	return applied, nil
}

// GetHistory returns one page of an owned account's ledger, newest first.
// Every row is annotated with the account's current balance.
func (k *Kobo) GetHistory(ctx context.Context, email, accountNumber string, page, perPage int) (*model.TransactionPage, error) {
	ctx, span := tracer.Start(ctx, "GetHistory")
	defer span.End()

	account, err := k.authorizeAccount(ctx, email, accountNumber)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	transactions, err := k.datasource.GetTransactionsByAccount(ctx, account.AccountID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	total, err := k.datasource.CountTransactionsByAccount(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	for i := range transactions {
		transactions[i].BalanceAfter = account.Balance
	}

	return &model.TransactionPage{
		Transactions: transactions,
		Page:         page,
		PerPage:      perPage,
		Total:        total,
	}, nil
}

// GetTransaction returns a single ledger entry, addressed by either its
// reference or its transaction ID. Only a participant may see it: the caller
// must own the source or the destination account. Anyone else gets the same
// not-found as a reference that never existed.
func (k *Kobo) GetTransaction(ctx context.Context, email, ref string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "GetTransaction")
	defer span.End()

	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// IDs look like txn_<uuid> and references like TXN3F2A09BC; the two
	// namespaces never collide.
	var txn *model.Transaction
	if strings.HasPrefix(ref, "txn_") {
		txn, err = k.datasource.GetTransaction(ctx, ref)
	} else {
		txn, err = k.datasource.GetTransactionByRef(ctx, ref)
	}
	if err != nil {
		return nil, err
	}

	if !k.ownsParty(ctx, user.UserID, txn) {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction '%s' not found", ref), nil)
	}
	return txn, nil
}

// ownsParty reports whether the user owns the source or the destination
// account of a ledger entry.
func (k *Kobo) ownsParty(ctx context.Context, userID string, txn *model.Transaction) bool {
	for _, accountID := range []string{txn.Source, txn.Destination} {
		if accountID == "" {
			continue
		}
		account, err := k.datasource.GetAccountByID(ctx, accountID)
		if err != nil {
			continue
		}
		if account.UserID == userID {
			return true
		}
	}
	return false
}

// applyWithLock serializes movements on the source account across engine
// instances with a redis lock, then hands the movement to the datasource,
// regenerating the reference on the rare collision.
func (k *Kobo) applyWithLock(ctx context.Context, sourceNumber string, txn *model.Transaction) (*model.Transaction, error) {
	locker, err := k.acquireLock(ctx, sourceNumber)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to acquire account lock", err)
	}
	if locker != nil {
		defer func(locker *redlock.Locker, ctx context.Context) {
			if err := locker.Unlock(ctx); err != nil {
				logrus.Error("lock error", err)
			}
		}(locker, ctx)
	}

	for attempt := 0; attempt < referenceRetries; attempt++ {
		txn.Reference = model.GenerateReference()
		applied, err := k.datasource.ApplyTransaction(ctx, txn)
		if err == nil {
			return applied, nil
		}
		apiErr, ok := err.(apierror.APIError)
		if ok && apiErr.Code == apierror.ErrConflict {
			logrus.Warnf("transaction reference collision on attempt %d, regenerating", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Could not allocate a unique transaction reference", nil)
}

func (k *Kobo) acquireLock(ctx context.Context, sourceNumber string) (*redlock.Locker, error) {
	if k.redis == nil {
		return nil, nil
	}
	locker := redlock.NewLocker(k.redis, sourceNumber, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, time.Minute, 10*time.Second); err != nil {
		return nil, err
	}
	return locker, nil
}

// notifyTransfer resolves both owners and queues the post-commit
// notification. Best effort only: every failure path logs and returns.
func (k *Kobo) notifyTransfer(ctx context.Context, txn *model.Transaction, sourceUserID, destinationUserID string) {
	owners := []struct {
		userID string
		role   string
	}{
		{sourceUserID, "sender"},
		{destinationUserID, "receiver"},
	}

	recipients := make([]NotificationRecipient, 0, 2)
	for _, o := range owners {
		owner, err := k.datasource.GetUserByID(ctx, o.userID)
		if err != nil {
			notification.NotifyError(err)
			continue
		}
		recipients = append(recipients, NotificationRecipient{
			Email: owner.Email,
			Name:  owner.FirstName,
			Role:  o.role,
		})
	}
	k.queueTransferNotification(TransferNotification{Transaction: *txn, Recipients: recipients})
}
