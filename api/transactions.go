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

	"github.com/gin-gonic/gin"

	model2 "github.com/davidenwere/kobo/api/model"
	"github.com/davidenwere/kobo/api/middleware"
)

// Deposit credits the addressed account.
//
// Responses:
// - 400 Bad Request: invalid body or amount.
// - 403 Forbidden: account not owned by the caller.
// - 409 Conflict: account inactive.
// - 201 Created: the recorded transaction with the new balance.
func (a Api) Deposit(c *gin.Context) {
	number, body, ok := a.bindMovement(c)
	if !ok {
		return
	}

	txn, err := a.kobo.Deposit(c.Request.Context(), middleware.AuthEmail(c), number, body.Amount, body.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// Withdraw debits the addressed account.
func (a Api) Withdraw(c *gin.Context) {
	number, body, ok := a.bindMovement(c)
	if !ok {
		return
	}

	txn, err := a.kobo.Withdraw(c.Request.Context(), middleware.AuthEmail(c), number, body.Amount, body.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// Transfer moves money from the addressed account to the destination named
// in the body.
func (a Api) Transfer(c *gin.Context) {
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /:number"})
		return
	}

	var body model2.RecordTransaction
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := body.ValidateRecordTransfer(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.kobo.Transfer(c.Request.Context(), middleware.AuthEmail(c), number, body.DestinationAccountNumber, body.Amount, body.Description)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// GetHistory returns a page of the account's ledger entries.
func (a Api) GetHistory(c *gin.Context) {
	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /:number"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	history, err := a.kobo.GetHistory(c.Request.Context(), middleware.AuthEmail(c), number, page, perPage)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetTransaction returns a single ledger entry by reference or transaction
// ID. Only a participant in the movement can retrieve it.
func (a Api) GetTransaction(c *gin.Context) {
	reference, passed := c.Params.Get("reference")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction reference is required. pass reference in the route /:reference"})
		return
	}

	txn, err := a.kobo.GetTransaction(c.Request.Context(), middleware.AuthEmail(c), reference)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (a Api) bindMovement(c *gin.Context) (string, model2.RecordTransaction, bool) {
	var body model2.RecordTransaction

	number, passed := c.Params.Get("number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account number is required. pass number in the route /:number"})
		return "", body, false
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return "", body, false
	}
	if err := body.ValidateRecordTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return "", body, false
	}
	return number, body, true
}
