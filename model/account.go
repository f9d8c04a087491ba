package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
)

// AccountNumberLength is the fixed length of externally addressable account
// numbers. Numbers are immutable once assigned.
const AccountNumberLength = 10

// Account is a user-owned balance holder. Number is the externally
// addressable identifier, AccountID the internal one.
type Account struct {
	ID        int64           `json:"-"`
	AccountID string          `json:"account_id"`
	Number    string          `json:"number"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	UserID    string          `json:"user_id"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ValidAccountType(t AccountType) bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}
