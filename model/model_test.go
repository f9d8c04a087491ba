package model

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newAccount(balance string, active bool) *Account {
	return &Account{
		AccountID: GenerateUUIDWithSuffix("acc"),
		Number:    GenerateAccountNumber(),
		Type:      AccountTypeChecking,
		Balance:   decimal.RequireFromString(balance),
		Active:    active,
	}
}

func TestUpdateBalancesDeposit(t *testing.T) {
	source := newAccount("0", true)
	txn := &Transaction{
		Source: source.AccountID,
		Amount: decimal.RequireFromString("100.00"),
		Type:   TypeDeposit,
	}

	err := UpdateBalances(txn, source, nil)
	assert.NoError(t, err)
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestUpdateBalancesWithdrawalInsufficientFunds(t *testing.T) {
	source := newAccount("30.00", true)
	txn := &Transaction{
		Source: source.AccountID,
		Amount: decimal.RequireFromString("50.00"),
		Type:   TypeWithdrawal,
	}

	err := UpdateBalances(txn, source, nil)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("30.00")), "failed withdrawal must not change the balance")
}

func TestUpdateBalancesTransfer(t *testing.T) {
	source := newAccount("1000.00", true)
	destination := newAccount("500.00", true)
	txn := &Transaction{
		Source:      source.AccountID,
		Destination: destination.AccountID,
		Amount:      decimal.RequireFromString("100.00"),
		Type:        TypeTransfer,
	}

	err := UpdateBalances(txn, source, destination)
	assert.NoError(t, err)
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("900.00")))
	assert.True(t, destination.Balance.Equal(decimal.RequireFromString("600.00")))
}

func TestUpdateBalancesSelfTransfer(t *testing.T) {
	source := newAccount("1000.00", true)
	txn := &Transaction{
		Source:      source.AccountID,
		Destination: source.AccountID,
		Amount:      decimal.RequireFromString("10.00"),
		Type:        TypeTransfer,
	}

	err := UpdateBalances(txn, source, source)
	assert.ErrorIs(t, err, ErrSameAccount)
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("1000.00")))
}

func TestUpdateBalancesInactiveDestination(t *testing.T) {
	source := newAccount("1000.00", true)
	destination := newAccount("500.00", false)
	txn := &Transaction{
		Source:      source.AccountID,
		Destination: destination.AccountID,
		Amount:      decimal.RequireFromString("100.00"),
		Type:        TypeTransfer,
	}

	err := UpdateBalances(txn, source, destination)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, destination.Balance.Equal(decimal.RequireFromString("500.00")))
}

func TestUpdateBalancesNonPositiveAmount(t *testing.T) {
	source := newAccount("100.00", true)
	for _, amount := range []string{"0", "-5.00"} {
		txn := &Transaction{
			Source: source.AccountID,
			Amount: decimal.RequireFromString(amount),
			Type:   TypeDeposit,
		}
		err := UpdateBalances(txn, source, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.True(t, source.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestGenerateReferenceFormatAndUniqueness(t *testing.T) {
	format := regexp.MustCompile(`^TXN[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := GenerateReference()
		assert.Regexp(t, format, ref)
		assert.False(t, seen[ref], "reference %s generated twice", ref)
		seen[ref] = true
	}
}

func TestGenerateAccountNumber(t *testing.T) {
	format := regexp.MustCompile(`^[0-9]{10}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, format, GenerateAccountNumber())
	}
}
