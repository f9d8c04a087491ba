package model

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation errors returned by the pure balance math. The datasource maps
// them onto the API error taxonomy.
var (
	ErrInvalidAmount     = errors.New("transaction amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameAccount       = errors.New("source and destination accounts are the same")
	ErrAccountInactive   = errors.New("account is not active")
	ErrMissingAccount    = errors.New("transaction is missing an account")
)

// GenerateUUIDWithSuffix generates a prefixed unique identifier, e.g.
// "acc_9f49146f-...". The prefix makes ids self-describing in logs.
func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// GenerateReference returns a human-shareable transaction reference of the
// form TXN3F2A09BC. References are checked by a unique index; callers retry
// on collision.
func GenerateReference() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to uuid
		// entropy rather than panicking in the money path.
		return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	}
	return "TXN" + strings.ToUpper(hex.EncodeToString(buf))
}

// GenerateAccountNumber returns a random numeric string of
// AccountNumberLength digits. Uniqueness is the caller's job.
func GenerateAccountNumber() string {
	var sb strings.Builder
	for i := 0; i < AccountNumberLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String()
}

func canProcessTransaction(transaction *Transaction, sourceBalance decimal.Decimal) error {
	if sourceBalance.LessThan(transaction.Amount) {
		return ErrInsufficientFunds
	}
	return nil
}

func (transaction *Transaction) validate() error {
	if !transaction.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if transaction.Source == "" {
		return ErrMissingAccount
	}
	if transaction.Type == TypeTransfer {
		if transaction.Destination == "" {
			return ErrMissingAccount
		}
		if transaction.Destination == transaction.Source {
			return ErrSameAccount
		}
	}
	return nil
}

// UpdateBalances applies a transaction to the already-locked account rows.
// It performs the final validation inside the atomic unit and mutates the
// balances in place; nothing is written if it returns an error.
// destination is nil for deposits and withdrawals.
func UpdateBalances(transaction *Transaction, source, destination *Account) error {
	if err := transaction.validate(); err != nil {
		return err
	}
	if !source.Active {
		return ErrAccountInactive
	}

	switch transaction.Type {
	case TypeDeposit:
		source.Balance = source.Balance.Add(transaction.Amount)
	case TypeWithdrawal:
		if err := canProcessTransaction(transaction, source.Balance); err != nil {
			return err
		}
		source.Balance = source.Balance.Sub(transaction.Amount)
	case TypeTransfer:
		if destination == nil {
			return ErrMissingAccount
		}
		if !destination.Active {
			return ErrAccountInactive
		}
		if err := canProcessTransaction(transaction, source.Balance); err != nil {
			return err
		}
		source.Balance = source.Balance.Sub(transaction.Amount)
		destination.Balance = destination.Balance.Add(transaction.Amount)
	default:
		return fmt.Errorf("unknown transaction type %q", transaction.Type)
	}
	return nil
}
