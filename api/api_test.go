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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidenwere/kobo"
	"github.com/davidenwere/kobo/api/middleware"
	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/database/mocks"
	"github.com/davidenwere/kobo/internal/request"
	"github.com/davidenwere/kobo/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(&s.Response); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *kobo.Kobo, *mocks.MemoryDataSource) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		ProjectName: "Kobo Test",
		Server:      config.ServerConfig{SecretKey: "test-secret", TokenExpiryMinutes: 60},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
	})

	ds := mocks.NewMemoryDataSource()
	engine, err := kobo.NewKobo(ds)
	require.NoError(t, err)
	router := NewAPI(engine).Router()
	return router, engine, ds
}

func registerAndLogin(t *testing.T, router *gin.Engine) (string, string) {
	t.Helper()

	email := gofakeit.Email()
	payload, err := request.ToJsonReq(map[string]string{
		"first_name": gofakeit.FirstName(),
		"last_name":  gofakeit.LastName(),
		"email":      email,
		"password":   "s3cret-pass",
	})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST", Route: "/auth/register",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	payload, err = request.ToJsonReq(map[string]string{"email": email, "password": "s3cret-pass"})
	require.NoError(t, err)

	var loginResponse map[string]string
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST", Route: "/auth/login", Response: &loginResponse,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Bearer", loginResponse["type"])
	require.NotEmpty(t, loginResponse["token"])

	return email, loginResponse["token"]
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func openAccount(t *testing.T, router *gin.Engine, token string) model.Account {
	t.Helper()

	payload, err := request.ToJsonReq(map[string]string{"type": "CHECKING"})
	require.NoError(t, err)

	var account model.Account
	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST", Route: "/accounts",
		Header: authHeader(token), Response: &account,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	return account
}

func TestRegisterValidation(t *testing.T) {
	router, _, _ := setupRouter(t)

	tests := []struct {
		name         string
		payload      map[string]string
		expectedCode int
	}{
		{
			name: "valid registration",
			payload: map[string]string{
				"first_name": "Ada", "last_name": "Obi",
				"email": "ada@example.com", "password": "s3cret-pass",
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "missing email",
			payload: map[string]string{
				"first_name": "Ada", "last_name": "Obi", "password": "s3cret-pass",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "short password",
			payload: map[string]string{
				"first_name": "Ada", "last_name": "Obi",
				"email": "ada2@example.com", "password": "short",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			payload: map[string]string{
				"first_name": "Ada", "last_name": "Obi",
				"email": "ada@example.com", "password": "s3cret-pass",
			},
			expectedCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := request.ToJsonReq(tt.payload)
			require.NoError(t, err)

			resp, err := SetUpTestRequest(TestRequest{
				Payload: payload, Router: router, Method: "POST", Route: "/auth/register",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _, _ := setupRouter(t)
	email, _ := registerAndLogin(t, router)

	payload, err := request.ToJsonReq(map[string]string{"email": email, "password": "wrong-pass"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST", Route: "/auth/login",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _, _ := setupRouter(t)

	resp, err := SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/accounts",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/accounts",
		Header: authHeader("not-a-token"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMoneyMovementFlow(t *testing.T) {
	router, _, _ := setupRouter(t)

	_, senderToken := registerAndLogin(t, router)
	_, receiverToken := registerAndLogin(t, router)

	senderAccount := openAccount(t, router, senderToken)
	receiverAccount := openAccount(t, router, receiverToken)

	// deposit 500 into the sender's account
	payload, err := request.ToJsonReq(map[string]interface{}{"amount": "500", "description": "seed"})
	require.NoError(t, err)
	var deposit model.Transaction
	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/deposit", senderAccount.Number),
		Header: authHeader(senderToken), Response: &deposit,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, model.TypeDeposit, deposit.Type)
	assert.True(t, deposit.BalanceAfter.IntPart() == 500)

	// withdraw more than the balance
	payload, err = request.ToJsonReq(map[string]interface{}{"amount": "9000"})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/withdraw", senderAccount.Number),
		Header: authHeader(senderToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	// transfer 200 to the receiver
	payload, err = request.ToJsonReq(map[string]interface{}{
		"amount": "200", "description": "rent",
		"destination_account_number": receiverAccount.Number,
	})
	require.NoError(t, err)
	var transfer model.Transaction
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/transfer", senderAccount.Number),
		Header: authHeader(senderToken), Response: &transfer,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, receiverAccount.Number, transfer.DestinationNumber)
	assert.True(t, transfer.BalanceAfter.IntPart() == 300)

	// the receiver sees the incoming transfer in their history
	var history model.TransactionPage
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/accounts/%s/transactions?page=1&per_page=10", receiverAccount.Number),
		Header: authHeader(receiverToken), Response: &history,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), history.Total)
	assert.Equal(t, model.TypeTransfer, history.Transactions[0].Type)

	// moving money on someone else's account is forbidden
	payload, err = request.ToJsonReq(map[string]interface{}{"amount": "10"})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/deposit", senderAccount.Number),
		Header: authHeader(receiverToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestTransactionLookup(t *testing.T) {
	router, _, _ := setupRouter(t)

	_, senderToken := registerAndLogin(t, router)
	_, receiverToken := registerAndLogin(t, router)
	_, strangerToken := registerAndLogin(t, router)

	senderAccount := openAccount(t, router, senderToken)
	receiverAccount := openAccount(t, router, receiverToken)

	payload, err := request.ToJsonReq(map[string]interface{}{"amount": "100", "description": "seed"})
	require.NoError(t, err)
	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/deposit", senderAccount.Number),
		Header: authHeader(senderToken),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)

	payload, err = request.ToJsonReq(map[string]interface{}{
		"amount": "40", "destination_account_number": receiverAccount.Number,
	})
	require.NoError(t, err)
	var transfer model.Transaction
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/transfer", senderAccount.Number),
		Header: authHeader(senderToken), Response: &transfer,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotEmpty(t, transfer.Reference)

	// the sender can fetch it by reference
	var fetched model.Transaction
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/transactions/%s", transfer.Reference),
		Header: authHeader(senderToken), Response: &fetched,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, transfer.TransactionID, fetched.TransactionID)

	// the receiver is a participant too, and the transaction ID also works
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/transactions/%s", transfer.TransactionID),
		Header: authHeader(receiverToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	// a third party gets the same not-found as a bogus reference
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/transactions/%s", transfer.Reference),
		Header: authHeader(strangerToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/transactions/TXN00000000",
		Header: authHeader(senderToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTransferValidation(t *testing.T) {
	router, _, _ := setupRouter(t)
	_, token := registerAndLogin(t, router)
	account := openAccount(t, router, token)

	// missing destination
	payload, err := request.ToJsonReq(map[string]interface{}{"amount": "10"})
	require.NoError(t, err)
	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/transfer", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// self transfer
	payload, err = request.ToJsonReq(map[string]interface{}{
		"amount": "10", "destination_account_number": account.Number,
	})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/transfer", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// zero amount
	payload, err = request.ToJsonReq(map[string]interface{}{
		"amount": "0", "destination_account_number": "9999999999",
	})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST",
		Route:  fmt.Sprintf("/accounts/%s/transactions/transfer", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProfileUpdateTouchesUpdatedAt(t *testing.T) {
	router, _, _ := setupRouter(t)
	_, token := registerAndLogin(t, router)

	payload, err := request.ToJsonReq(map[string]string{
		"first_name": "New", "last_name": "Name",
	})
	require.NoError(t, err)

	var updated model.User
	resp, err := SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "PUT", Route: "/profile",
		Header: authHeader(token), Response: &updated,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "New", updated.FirstName)
	assert.False(t, updated.UpdatedAt.IsZero())
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestProfileDeletion(t *testing.T) {
	router, _, _ := setupRouter(t)
	email, token := registerAndLogin(t, router)
	account := openAccount(t, router, token)

	// an open account blocks deletion
	resp, err := SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE", Route: "/profile",
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)

	// close the account, then deletion goes through
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE",
		Route:  fmt.Sprintf("/accounts/%s", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE",
		Route:  fmt.Sprintf("/accounts/%s?purge=true", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE", Route: "/profile",
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	// the deleted user can no longer log in
	payload, err := request.ToJsonReq(map[string]string{"email": email, "password": "s3cret-pass"})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "POST", Route: "/auth/login",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	router, _, _ := setupRouter(t)
	_, token := registerAndLogin(t, router)
	account := openAccount(t, router, token)

	// deactivate
	resp, err := SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE",
		Route:  fmt.Sprintf("/accounts/%s", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	// purge
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "DELETE",
		Route:  fmt.Sprintf("/accounts/%s?purge=true", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/accounts/%s", account.Number),
		Header: authHeader(token),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router, _, _ := setupRouter(t)
	_, userToken := registerAndLogin(t, router)

	// regular users are kept out
	resp, err := SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/admin/dashboard",
		Header: authHeader(userToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	adminToken, err := middleware.GenerateToken(&model.User{
		UserID: "usr_admin",
		Email:  "admin@example.com",
		Roles:  []string{model.RoleAdmin},
	})
	require.NoError(t, err)

	var stats model.DashboardStats
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/admin/dashboard",
		Header: authHeader(adminToken), Response: &stats,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), stats.TotalUsers)

	var users []model.User
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET", Route: "/admin/users",
		Header: authHeader(adminToken), Response: &users,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, users, 1)

	var single model.User
	resp, err = SetUpTestRequest(TestRequest{
		Router: router, Method: "GET",
		Route:  fmt.Sprintf("/admin/users/%s", users[0].UserID),
		Header: authHeader(adminToken), Response: &single,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, users[0].Email, single.Email)

	// disable the user, then their login fails
	payload, err := request.ToJsonReq(map[string]bool{"enabled": false})
	require.NoError(t, err)
	resp, err = SetUpTestRequest(TestRequest{
		Payload: payload, Router: router, Method: "PUT",
		Route:  fmt.Sprintf("/admin/users/%s/status", users[0].UserID),
		Header: authHeader(adminToken),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}
