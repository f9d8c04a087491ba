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
)

// Register creates a new user account.
//
// Responses:
// - 400 Bad Request: invalid body.
// - 409 Conflict: email already registered.
// - 201 Created: the new user.
func (a Api) Register(c *gin.Context) {
	var newUser model2.RegisterUser
	if err := c.ShouldBindJSON(&newUser); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newUser.ValidateRegisterUser(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	user, err := a.kobo.Register(c.Request.Context(), newUser.ToUser(), newUser.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login authenticates a user and issues a bearer token.
func (a Api) Login(c *gin.Context) {
	var login model2.LoginUser
	if err := c.ShouldBindJSON(&login); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := login.ValidateLoginUser(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	user, err := a.kobo.Authenticate(c.Request.Context(), login.Email, login.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "type": "Bearer"})
}

// GetProfile returns the authenticated user's profile.
func (a Api) GetProfile(c *gin.Context) {
	user, err := a.kobo.GetProfile(c.Request.Context(), middleware.AuthEmail(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's name and email.
func (a Api) UpdateProfile(c *gin.Context) {
	var update model2.UpdateProfile
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := update.ValidateUpdateProfile(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	user, err := a.kobo.UpdateProfile(c.Request.Context(), middleware.AuthEmail(c), update.FirstName, update.LastName, update.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteProfile removes the authenticated user's record. Open accounts block
// deletion.
func (a Api) DeleteProfile(c *gin.Context) {
	if err := a.kobo.DeleteProfile(c.Request.Context(), middleware.AuthEmail(c)); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// ChangePassword replaces the authenticated user's password.
func (a Api) ChangePassword(c *gin.Context) {
	var change model2.ChangePassword
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := change.ValidateChangePassword(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.kobo.ChangePassword(c.Request.Context(), middleware.AuthEmail(c), change.CurrentPassword, change.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
