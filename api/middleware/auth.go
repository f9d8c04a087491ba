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
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/model"
)

// ContextKeyEmail is the gin context key under which JWTAuthMiddleware
// stores the authenticated identity.
const ContextKeyEmail = "auth_email"

// ContextKeyRoles holds the authenticated user's roles.
const ContextKeyRoles = "auth_roles"

// Claims is the JWT payload issued at login.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.StandardClaims
}

// GenerateToken signs a bearer token for an authenticated user.
func GenerateToken(user *model.User) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(conf.Server.TokenExpiryMinutes) * time.Minute)
	claims := &Claims{
		Email: user.Email,
		Roles: user.Roles,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.UserID,
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(conf.Server.SecretKey))
}

// ParseToken validates a signed token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(conf.Server.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuthMiddleware authenticates requests with a Bearer token and stores
// the identity on the context for handlers.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRoles, claims.Roles)
		c.Next()
	}
}

// AdminOnly allows only users carrying the admin role past it. Must run
// after JWTAuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, ok := c.Get(ContextKeyRoles)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		for _, role := range roles.([]string) {
			if role == model.RoleAdmin {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}

// AuthEmail returns the authenticated identity set by JWTAuthMiddleware.
func AuthEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}
