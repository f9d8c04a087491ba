package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeTransfer   TransactionType = "TRANSFER"
)

// Transaction is an immutable ledger entry. Source is always set;
// Destination only for transfers. BalanceAfter is annotated by the engine on
// the way out and is never persisted.
type Transaction struct {
	ID                int64           `json:"-"`
	TransactionID     string          `json:"id"`
	Reference         string          `json:"reference"`
	Source            string          `json:"-"`
	Destination       string          `json:"-"`
	SourceNumber      string          `json:"source_account_number"`
	DestinationNumber string          `json:"destination_account_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Type              TransactionType `json:"type"`
	Description       string          `json:"description,omitempty"`
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (transaction *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(transaction)
}

// TransactionPage is one page of ledger history plus pagination metadata.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Total        int64         `json:"total"`
}
