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

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/davidenwere/kobo/internal/apierror"
	"github.com/davidenwere/kobo/model"
)

// accountNumberRetries bounds the collision retry loop on the generated
// account number. Collisions over a 10-digit space are vanishingly rare, so
// hitting the bound means something is broken, not unlucky.
const accountNumberRetries = 5

// CreateAccount opens a new zero-balance active account for the identified
// user. The account number is generated and retried on the off chance it
// collides with an existing one.
func (k *Kobo) CreateAccount(ctx context.Context, email string, accountType model.AccountType) (model.Account, error) {
	if !model.ValidAccountType(accountType) {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Account type must be CHECKING or SAVINGS", nil)
	}

	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return model.Account{}, err
	}

	account := model.Account{
		Type:    accountType,
		Balance: decimal.Zero,
		UserID:  user.UserID,
		Active:  true,
	}

	for attempt := 0; attempt < accountNumberRetries; attempt++ {
		account.Number = model.GenerateAccountNumber()
		created, err := k.datasource.CreateAccount(ctx, account)
		if err == nil {
			return created, nil
		}
		apiErr, ok := err.(apierror.APIError)
		if ok && apiErr.Code == apierror.ErrConflict {
			logrus.Warnf("account number collision on attempt %d, regenerating", attempt+1)
			continue
		}
		return model.Account{}, err
	}
	return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Could not allocate a unique account number", nil)
}

// GetAccounts lists every account owned by the identified user.
func (k *Kobo) GetAccounts(ctx context.Context, email string) ([]model.Account, error) {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return k.datasource.GetAccountsByUser(ctx, user.UserID)
}

// GetAccount returns a single account by number, only to its owner.
func (k *Kobo) GetAccount(ctx context.Context, email, number string) (*model.Account, error) {
	return k.authorizeAccount(ctx, email, number)
}

// DeactivateAccount soft-disables an account. The account and its history
// remain; it can no longer move money.
func (k *Kobo) DeactivateAccount(ctx context.Context, email, number string) error {
	account, err := k.authorizeAccount(ctx, email, number)
	if err != nil {
		return err
	}
	if !account.Active {
		return apierror.NewAPIError(apierror.ErrInvalidState, "Account is already inactive", nil)
	}
	return k.datasource.UpdateAccountStatus(ctx, account.AccountID, false)
}

// DeleteAccount hard-deletes an account. Only inactive accounts holding no
// money may be removed; everything else is a deactivate.
func (k *Kobo) DeleteAccount(ctx context.Context, email, number string) error {
	account, err := k.authorizeAccount(ctx, email, number)
	if err != nil {
		return err
	}
	if account.Active {
		return apierror.NewAPIError(apierror.ErrInvalidState, "Account must be deactivated before deletion", nil)
	}
	if !account.Balance.IsZero() {
		return apierror.NewAPIError(apierror.ErrInvalidState, "Account balance must be zero before deletion", nil)
	}
	return k.datasource.DeleteAccount(ctx, account.AccountID)
}

// authorizeAccount resolves an account number and checks that the identity
// owns it. Every owner-scoped operation funnels through here.
func (k *Kobo) authorizeAccount(ctx context.Context, email, number string) (*model.Account, error) {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	account, err := k.datasource.GetAccountByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if account.UserID != user.UserID {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Account does not belong to you", nil)
	}
	return account, nil
}
