// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the authenticated user from a bearer token. The token is
// stateless; every request carries its own proof of identity and there is no
// server-side session store to consult.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenParser verifies a bearer token and returns the user id it carries.
// Satisfied by *services.AuthService.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// BearerAuth extracts "Authorization: Bearer <token>", verifies it, and
// stores the user id in the Gin context under "userID" for downstream
// middleware and handlers.
//
// Requests without a valid token pass through unauthenticated; endpoints that
// require an identity reject them individually. This keeps public endpoints
// (sign-up, health) on the same chain.
func BearerAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if token, found := strings.CutPrefix(h, "Bearer "); found {
			if uid, err := parser.ParseToken(strings.TrimSpace(token)); err == nil && uid != "" {
				c.Set("userID", uid)
			}
		}
		c.Next()
	}
}
