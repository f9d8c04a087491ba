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

	"golang.org/x/crypto/bcrypt"

	"github.com/davidenwere/kobo/internal/apierror"
	"github.com/davidenwere/kobo/model"
)

// Register creates a new user with a bcrypt-hashed password. Email
// uniqueness is enforced by the datasource.
func (k *Kobo) Register(ctx context.Context, user model.User, password string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to hash password", err)
	}

	user.Password = string(hash)
	user.Enabled = true
	user.Roles = []string{model.RoleUser}
	return k.datasource.CreateUser(ctx, user)
}

// Authenticate verifies a user's credentials and returns the user on
// success. Bad email and bad password are indistinguishable to the caller.
func (k *Kobo) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid email or password", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid email or password", err)
	}

	if !user.Enabled {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState, "User account is disabled", nil)
	}

	return user, nil
}

// GetProfile returns the user behind an authenticated identity.
func (k *Kobo) GetProfile(ctx context.Context, email string) (*model.User, error) {
	return k.datasource.GetUserByEmail(ctx, email)
}

// UpdateProfile updates the caller's name and email.
func (k *Kobo) UpdateProfile(ctx context.Context, email string, firstName, lastName, newEmail string) (*model.User, error) {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	user.FirstName = firstName
	user.LastName = lastName
	if newEmail != "" {
		user.Email = newEmail
	}

	if err := k.datasource.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteProfile removes the caller's own user record. Refused while the
// caller still owns accounts; those must be closed first.
func (k *Kobo) DeleteProfile(ctx context.Context, email string) error {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	return k.datasource.DeleteUser(ctx, user.UserID)
}

// ChangePassword replaces the caller's password after verifying the current
// one.
func (k *Kobo) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	user, err := k.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apierror.NewAPIError(apierror.ErrUnauthorized, "Current password is incorrect", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to hash password", err)
	}

	return k.datasource.UpdateUserPassword(ctx, user.UserID, string(hash))
}
