package model

import "github.com/shopspring/decimal"

// DashboardStats is the admin dashboard aggregate view.
type DashboardStats struct {
	TotalUsers        int64           `json:"total_users"`
	TotalAccounts     int64           `json:"total_accounts"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
	TotalTransactions int64           `json:"total_transactions"`
	ActiveUsers       int64           `json:"active_users"`
	NewUsersToday     int64           `json:"new_users_today"`
}
