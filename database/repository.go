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
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidenwere/kobo/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	user        // Interface for user-related operations
	account     // Interface for account-related operations
	transaction // Interface for transaction-related operations
	adminStats  // Interface for aggregate reporting operations
}

// user defines methods for handling users.
type user interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)   // Creates a new user
	GetUserByID(ctx context.Context, id string) (*model.User, error)       // Retrieves a user by ID
	GetUserByEmail(ctx context.Context, email string) (*model.User, error) // Retrieves a user by email
	GetAllUsers(ctx context.Context, limit, offset int) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error // Updates a user's profile fields
	UpdateUserPassword(ctx context.Context, id string, passwordHash string) error
	UpdateUserStatus(ctx context.Context, id string, enabled bool) error // Enables or disables a user
	DeleteUser(ctx context.Context, id string) error
}

// account defines methods for handling accounts.
type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error) // Creates a new account
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)           // Retrieves an account by ID
	GetAccountByNumber(ctx context.Context, number string) (*model.Account, error)   // Retrieves an account by its number
	GetAccountsByUser(ctx context.Context, userID string) ([]model.Account, error)   // Retrieves all accounts owned by a user
	GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	UpdateAccountStatus(ctx context.Context, id string, active bool) error // Activates or deactivates an account
	DeleteAccount(ctx context.Context, id string) error
}

// transaction defines methods for handling transactions.
type transaction interface {
	ApplyTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)                      // Applies a transaction and its balance movements atomically
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                                     // Retrieves a transaction by ID
	GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error)                         // Retrieves a transaction by reference
	GetTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, error) // Retrieves transactions touching an account
	CountTransactionsByAccount(ctx context.Context, accountID string) (int64, error)
}

// adminStats defines aggregate queries backing the admin dashboard.
type adminStats interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	CountUsersCreatedAfter(ctx context.Context, t time.Time) (int64, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountTransactions(ctx context.Context) (int64, error)
	SumAccountBalances(ctx context.Context) (decimal.Decimal, error)
}
