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
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/davidenwere/kobo/api/model"
)

// Dashboard returns the admin dashboard aggregates.
func (a Api) Dashboard(c *gin.Context) {
	stats, err := a.kobo.GetDashboardStats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers returns a page of registered users.
func (a Api) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, err := a.kobo.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ListAllAccounts returns a page of accounts across all users.
func (a Api) ListAllAccounts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	accounts, err := a.kobo.ListAllAccounts(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// GetUser returns a single user by ID.
func (a Api) GetUser(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required. pass id in the route /:id"})
		return
	}

	user, err := a.kobo.GetUser(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUserStatus enables or disables a user.
func (a Api) UpdateUserStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required. pass id in the route /:id"})
		return
	}

	var body model2.UpdateUserStatus
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateUpdateUserStatus(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.kobo.SetUserStatus(c.Request.Context(), id, *body.Enabled); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user status updated"})
}

// DeleteUser removes a user that owns no accounts.
func (a Api) DeleteUser(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required. pass id in the route /:id"})
		return
	}

	if err := a.kobo.DeleteUser(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// GetStat serves the individual dashboard figures, one per path.
func (a Api) GetStat(c *gin.Context) {
	stats, err := a.kobo.GetDashboardStats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	stat, _ := c.Params.Get("stat")
	switch stat {
	case "users":
		c.JSON(http.StatusOK, gin.H{"total_users": stats.TotalUsers})
	case "users-active":
		c.JSON(http.StatusOK, gin.H{"active_users": stats.ActiveUsers})
	case "users-new":
		c.JSON(http.StatusOK, gin.H{"new_users_today": stats.NewUsersToday, "since": midnightToday()})
	case "accounts":
		c.JSON(http.StatusOK, gin.H{"total_accounts": stats.TotalAccounts})
	case "balance":
		c.JSON(http.StatusOK, gin.H{"total_balance": stats.TotalBalance})
	case "transactions":
		c.JSON(http.StatusOK, gin.H{"total_transactions": stats.TotalTransactions})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stat"})
	}
}

func midnightToday() time.Time {
	year, month, day := time.Now().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}
