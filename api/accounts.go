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

	"github.com/gin-gonic/gin"

	model2 "github.com/davidenwere/kobo/api/model"
	"github.com/davidenwere/kobo/api/middleware"
	"github.com/davidenwere/kobo/model"
)

// CreateAccount opens a new account for the authenticated user.
func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model2.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newAccount.ValidateCreateAccount(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	account, err := a.kobo.CreateAccount(c.Request.Context(), middleware.AuthEmail(c), model.AccountType(newAccount.Type))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetAccounts lists the authenticated user's accounts.
func (a Api) GetAccounts(c *gin.Context) {
	accounts, err := a.kobo.GetAccounts(c.Request.Context(), middleware.AuthEmail(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// GetAccount returns one of the authenticated user's accounts by number.
func (a Api) GetAccount(c *gin.Context) {
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /:number"})
		return
	}

	account, err := a.kobo.GetAccount(c.Request.Context(), middleware.AuthEmail(c), number)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// DeleteAccount deactivates an account; with ?purge=true it hard-deletes an
// already inactive, zero-balance account.
func (a Api) DeleteAccount(c *gin.Context) {
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /:number"})
		return
	}

	if c.Query("purge") == "true" {
		if err := a.kobo.DeleteAccount(c.Request.Context(), middleware.AuthEmail(c), number); err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
		return
	}

	if err := a.kobo.DeactivateAccount(c.Request.Context(), middleware.AuthEmail(c), number); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}
