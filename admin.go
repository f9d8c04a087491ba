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
	"time"

	"github.com/davidenwere/kobo/model"
)

// GetDashboardStats assembles the admin dashboard aggregates. The figures
// come from separate queries and are not a consistent snapshot; the
// dashboard tolerates that.
func (k *Kobo) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	var err error
	if stats.TotalUsers, err = k.datasource.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = k.datasource.CountActiveUsers(ctx); err != nil {
		return nil, err
	}
	if stats.NewUsersToday, err = k.datasource.CountUsersCreatedAfter(ctx, midnight(time.Now())); err != nil {
		return nil, err
	}
	if stats.TotalAccounts, err = k.datasource.CountAccounts(ctx); err != nil {
		return nil, err
	}
	if stats.TotalTransactions, err = k.datasource.CountTransactions(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBalance, err = k.datasource.SumAccountBalances(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// ListUsers returns a page of registered users, newest first.
func (k *Kobo) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return k.datasource.GetAllUsers(ctx, limit, offset)
}

// ListAllAccounts returns a page of accounts across all users.
func (k *Kobo) ListAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return k.datasource.GetAllAccounts(ctx, limit, offset)
}

// GetUser returns a single user by ID.
func (k *Kobo) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return k.datasource.GetUserByID(ctx, userID)
}

// SetUserStatus enables or disables a user's ability to authenticate.
func (k *Kobo) SetUserStatus(ctx context.Context, userID string, enabled bool) error {
	return k.datasource.UpdateUserStatus(ctx, userID, enabled)
}

// DeleteUser removes a user that no longer owns any accounts.
func (k *Kobo) DeleteUser(ctx context.Context, userID string) error {
	return k.datasource.DeleteUser(ctx, userID)
}
