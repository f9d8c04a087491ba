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
package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"

	"github.com/davidenwere/kobo/model"
)

// RegisterUser is the registration request body.
type RegisterUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (r *RegisterUser) ValidateRegisterUser() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (r *RegisterUser) ToUser() model.User {
	return model.User{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

// LoginUser is the login request body.
type LoginUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *LoginUser) ValidateLoginUser() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Email, validation.Required, is.EmailFormat),
		validation.Field(&l.Password, validation.Required),
	)
}

// UpdateProfile is the profile update request body.
type UpdateProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (u *UpdateProfile) ValidateUpdateProfile() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.FirstName, validation.Required),
		validation.Field(&u.LastName, validation.Required),
		validation.Field(&u.Email, is.EmailFormat),
	)
}

// ChangePassword is the password change request body.
type ChangePassword struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (c *ChangePassword) ValidateChangePassword() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CurrentPassword, validation.Required),
		validation.Field(&c.NewPassword, validation.Required, validation.Length(8, 72)),
	)
}

// CreateAccount is the account creation request body.
type CreateAccount struct {
	Type string `json:"type"`
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Type, validation.Required, validation.In(string(model.AccountTypeChecking), string(model.AccountTypeSavings))),
	)
}

// RecordTransaction is the body of deposit, withdraw and transfer requests.
// DestinationAccountNumber is only read for transfers.
type RecordTransaction struct {
	Amount                   decimal.Decimal `json:"amount"`
	Description              string          `json:"description"`
	DestinationAccountNumber string          `json:"destination_account_number"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

func (t *RecordTransaction) ValidateRecordTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.By(positiveAmount)),
		validation.Field(&t.Description, validation.Length(0, 255)),
	)
}

func (t *RecordTransaction) ValidateRecordTransfer() error {
	if err := t.ValidateRecordTransaction(); err != nil {
		return err
	}
	return validation.ValidateStruct(t,
		validation.Field(&t.DestinationAccountNumber, validation.Required, validation.Length(model.AccountNumberLength, model.AccountNumberLength), is.Digit),
	)
}

// UpdateUserStatus is the admin request body for enabling or disabling a
// user. Enabled is a pointer so "false" and "missing" are distinguishable.
type UpdateUserStatus struct {
	Enabled *bool `json:"enabled"`
}

func (u *UpdateUserStatus) ValidateUpdateUserStatus() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Enabled, validation.NotNil),
	)
}
