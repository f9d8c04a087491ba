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

// CreateUser inserts a new User into the database.
// The caller is expected to have hashed the password already.
func (d Datasource) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	user.UserID = model.GenerateUUIDWithSuffix("usr")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if len(user.Roles) == 0 {
		user.Roles = []string{model.RoleUser}
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, last_name, email, password, roles, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.UserID, user.FirstName, user.LastName, user.Email, user.Password, pq.Array(user.Roles), user.Enabled, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.User{}, apierror.NewAPIError(apierror.ErrConflict, "User with this email already exists", err)
			default:
				return model.User{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.User{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create user", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (d Datasource) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, email, password, roles, enabled, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`, id)

	return scanUserRow(row, id)
}

// GetUserByEmail retrieves a user by their email address. Used for login and
// for rejecting duplicate registrations before hitting the unique index.
func (d Datasource) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, email, password, roles, enabled, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	return scanUserRow(row, email)
}

func scanUserRow(row *sql.Row, ref string) (*model.User, error) {
	user := model.User{}
	err := row.Scan(&user.UserID, &user.FirstName, &user.LastName, &user.Email, &user.Password, pq.Array(&user.Roles), &user.Enabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("User '%s' not found", ref), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve user", err)
	}
	return &user, nil
}

// GetAllUsers retrieves users ordered by signup date, newest first.
func (d Datasource) GetAllUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT user_id, first_name, last_name, email, password, roles, enabled, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve users", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	users := []model.User{}
	for rows.Next() {
		user := model.User{}
		err = rows.Scan(&user.UserID, &user.FirstName, &user.LastName, &user.Email, &user.Password, pq.Array(&user.Roles), &user.Enabled, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan user row", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating user rows", err)
	}

	return users, nil
}

// UpdateUser updates a user's profile fields. Email changes are subject to the
// same uniqueness rule as registration.
func (d Datasource) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, updated_at = $5
		WHERE user_id = $1
	`, user.UserID, user.FirstName, user.LastName, user.Email, user.UpdatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return apierror.NewAPIError(apierror.ErrConflict, "User with this email already exists", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update user", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("User '%s' not found", user.UserID))
}

// UpdateUserPassword replaces a user's password hash.
func (d Datasource) UpdateUserPassword(ctx context.Context, id string, passwordHash string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE users SET password = $2, updated_at = $3 WHERE user_id = $1
	`, id, passwordHash, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update password", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("User '%s' not found", id))
}

// UpdateUserStatus enables or disables a user. Disabled users cannot
// authenticate but their accounts and history remain.
func (d Datasource) UpdateUserStatus(ctx context.Context, id string, enabled bool) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE users SET enabled = $2, updated_at = $3 WHERE user_id = $1
	`, id, enabled, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update user status", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("User '%s' not found", id))
}

// DeleteUser removes a user row. Fails while accounts still reference the
// user through the foreign key.
func (d Datasource) DeleteUser(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM users WHERE user_id = $1
	`, id)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "foreign_key_violation" {
			return apierror.NewAPIError(apierror.ErrInvalidState, "User still has accounts and cannot be deleted", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete user", err)
	}

	return checkRowsAffected(result, fmt.Sprintf("User '%s' not found", id))
}

func checkRowsAffected(result sql.Result, notFoundMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check affected rows", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, notFoundMsg, nil)
	}
	return nil
}
