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
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidenwere/kobo/internal/apierror"
	"github.com/davidenwere/kobo/model"
)

// MemoryDataSource is an in-memory IDataSource used where tests need real
// data semantics rather than canned responses: unique constraints,
// ApplyTransaction atomicity under concurrent callers, pagination. A single
// mutex serializes every operation, mirroring what row locks give the real
// datasource.
type MemoryDataSource struct {
	mu           sync.Mutex
	users        map[string]*model.User
	accounts     map[string]*model.Account
	transactions []*model.Transaction
	references   map[string]bool
}

func NewMemoryDataSource() *MemoryDataSource {
	return &MemoryDataSource{
		users:      make(map[string]*model.User),
		accounts:   make(map[string]*model.Account),
		references: make(map[string]bool),
	}
}

// User methods

func (m *MemoryDataSource) CreateUser(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return model.User{}, apierror.NewAPIError(apierror.ErrConflict, "User with this email already exists", nil)
		}
	}

	user.UserID = model.GenerateUUIDWithSuffix("usr")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if len(user.Roles) == 0 {
		user.Roles = []string{model.RoleUser}
	}
	copied := user
	m.users[user.UserID] = &copied
	return user, nil
}

func (m *MemoryDataSource) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryDataSource) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
}

func (m *MemoryDataSource) GetAllUsers(_ context.Context, limit, offset int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]model.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return paginate(users, limit, offset), nil
}

func (m *MemoryDataSource) UpdateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.UserID]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	for id, other := range m.users {
		if id != user.UserID && other.Email == user.Email {
			return apierror.NewAPIError(apierror.ErrConflict, "User with this email already exists", nil)
		}
	}
	user.UpdatedAt = time.Now()
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Email = user.Email
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

func (m *MemoryDataSource) UpdateUserPassword(_ context.Context, id string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	user.Password = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDataSource) UpdateUserStatus(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	user.Enabled = enabled
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDataSource) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	for _, account := range m.accounts {
		if account.UserID == id {
			return apierror.NewAPIError(apierror.ErrInvalidState, "User still has accounts and cannot be deleted", nil)
		}
	}
	delete(m.users, id)
	return nil
}

// Account methods

func (m *MemoryDataSource) CreateAccount(_ context.Context, account model.Account) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Number == account.Number {
			return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, "Account number already exists", nil)
		}
	}
	if _, ok := m.users[account.UserID]; !ok {
		return model.Account{}, apierror.NewAPIError(apierror.ErrNotFound, "Owning user does not exist", nil)
	}

	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := account
	m.accounts[account.AccountID] = &copied
	return account, nil
}

func (m *MemoryDataSource) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}
	copied := *account
	return &copied, nil
}

func (m *MemoryDataSource) GetAccountByNumber(_ context.Context, number string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.Number == number {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
}

func (m *MemoryDataSource) GetAccountsByUser(_ context.Context, userID string) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := []model.Account{}
	for _, account := range m.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (m *MemoryDataSource) GetAllAccounts(_ context.Context, limit, offset int) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]model.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		accounts = append(accounts, *account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return paginate(accounts, limit, offset), nil
}

func (m *MemoryDataSource) UpdateAccountStatus(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}
	account.Active = active
	account.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDataSource) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}
	for _, txn := range m.transactions {
		if txn.Source == id || txn.Destination == id {
			return apierror.NewAPIError(apierror.ErrInvalidState, "Account has transaction history and cannot be deleted", nil)
		}
	}
	delete(m.accounts, id)
	return nil
}

// Transaction methods

func (m *MemoryDataSource) ApplyTransaction(_ context.Context, txn *model.Transaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.references[txn.Reference] {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Transaction reference already exists", nil)
	}

	source, ok := m.accounts[txn.Source]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}
	var destination *model.Account
	if txn.Destination != "" {
		destination, ok = m.accounts[txn.Destination]
		if !ok {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
		}
	}

	// Work on copies so a failed validation leaves the stored rows alone.
	sourceCopy := *source
	var destinationCopy *model.Account
	if destination != nil {
		tmp := *destination
		destinationCopy = &tmp
	}

	if err := model.UpdateBalances(txn, &sourceCopy, destinationCopy); err != nil {
		switch err {
		case model.ErrInsufficientFunds:
			return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds, "Insufficient funds in source account", err)
		case model.ErrAccountInactive:
			return nil, apierror.NewAPIError(apierror.ErrInvalidState, "Account is not active", err)
		default:
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
		}
	}

	txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	txn.CreatedAt = time.Now()
	txn.SourceNumber = sourceCopy.Number
	txn.BalanceAfter = sourceCopy.Balance

	*source = sourceCopy
	if destination != nil {
		*destination = *destinationCopy
		txn.DestinationNumber = destinationCopy.Number
	}

	m.references[txn.Reference] = true
	copied := *txn
	m.transactions = append(m.transactions, &copied)
	return txn, nil
}

func (m *MemoryDataSource) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txn := range m.transactions {
		if txn.TransactionID == id {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "Transaction not found", nil)
}

func (m *MemoryDataSource) GetTransactionByRef(_ context.Context, reference string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txn := range m.transactions {
		if txn.Reference == reference {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, "Transaction not found", nil)
}

func (m *MemoryDataSource) GetTransactionsByAccount(_ context.Context, accountID string, limit, offset int) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []model.Transaction{}
	for _, txn := range m.transactions {
		if txn.Source == accountID || txn.Destination == accountID {
			matched = append(matched, *txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, limit, offset), nil
}

func (m *MemoryDataSource) CountTransactionsByAccount(_ context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, txn := range m.transactions {
		if txn.Source == accountID || txn.Destination == accountID {
			count++
		}
	}
	return count, nil
}

// Admin methods

func (m *MemoryDataSource) CountUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *MemoryDataSource) CountActiveUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, user := range m.users {
		if user.Enabled {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDataSource) CountUsersCreatedAfter(_ context.Context, t time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, user := range m.users {
		if !user.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDataSource) CountAccounts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.accounts)), nil
}

func (m *MemoryDataSource) CountTransactions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.transactions)), nil
}

func (m *MemoryDataSource) SumAccountBalances(_ context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := decimal.Zero
	for _, account := range m.accounts {
		sum = sum.Add(account.Balance)
	}
	return sum, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
