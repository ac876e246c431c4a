// Auth HTTP handlers.
//
// This file exposes REST endpoints for the identity lifecycle:
//   - POST   /auth/signup                  (email/password account)
//   - POST   /auth/signin                  (email/password session)
//   - POST   /auth/anonymous               (credential-less session)
//   - POST   /auth/signout                 (stateless; ends the triage session)
//   - DELETE /auth/account                 (delete with cascade)
//   - POST   /auth/email-change[/confirm]  (staged email change)
//   - POST   /auth/password-reset[/confirm]
//
// Tokens are stateless JWTs; there is no server-side session store. Sign-out
// exists for symmetry and audit logging, and discards the caller's in-memory
// triage session.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watchdex/go-watch-backend/internal/services"
)

// AuthService defines the identity operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// SignUp creates an email/password account and returns a live session.
	SignUp(ctx context.Context, email, password string) (*services.Session, error)
	// SignIn authenticates an email/password pair.
	SignIn(ctx context.Context, email, password string) (*services.Session, error)
	// SignInAnonymously creates a credential-less account.
	SignInAnonymously(ctx context.Context) (*services.Session, error)
	// DeleteAccount removes the user and cascades owned rows.
	DeleteAccount(ctx context.Context, userID string) error
	// RequestEmailChange stages a new address and returns the token.
	RequestEmailChange(ctx context.Context, userID, newEmail string) (string, error)
	// ConfirmEmailChange applies a staged change when the token matches.
	ConfirmEmailChange(ctx context.Context, userID, token string) error
	// RequestPasswordReset issues a reset token for the account.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	// ConfirmPasswordReset sets a new password when the token matches.
	ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error
}

//
// DTOs
//

// CredentialsRequest is the JSON payload for sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"hunter22"`
}

// SessionResponse carries a bearer token and the account it belongs to.
type SessionResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// EmailChangeRequest stages a new sign-in address.
type EmailChangeRequest struct {
	NewEmail string `json:"new_email" binding:"required" example:"alice@new.example.com"`
}

// TokenConfirmRequest confirms a staged email change.
type TokenConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// PasswordResetRequest starts a password reset for an address.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required" example:"alice@example.com"`
}

// PasswordResetConfirmRequest completes a password reset.
type PasswordResetConfirmRequest struct {
	Email       string `json:"email" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// failAuthErr maps service-level identity errors onto the error envelope.
func failAuthErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, "invalid email or password too short")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already in use")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	case errors.Is(err, services.ErrBadToken):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid or expired token")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// sessionBody shapes a service session for the wire.
func sessionBody(s *services.Session) SessionResponse {
	return SessionResponse{Token: s.Token, User: s.User}
}

//
// Handlers
//

// SignUp godoc
// @ID          signUp
// @Summary     Create an account
// @Description Registers an email/password account and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
//
// @Success     201  {object} handlers.SessionResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     409  {object} handlers.ErrorResponse "Email already in use"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	sess, err := h.authSvc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failAuthErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sessionBody(sess))
}

// SignIn godoc
// @ID          signIn
// @Summary     Sign in
// @Description Authenticates an email/password pair and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Credentials"
//
// @Success     200  {object} handlers.SessionResponse
// @Failure     401  {object} handlers.ErrorResponse "Invalid credentials"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/signin [post]
func (h *Handlers) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	sess, err := h.authSvc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failAuthErr(c, err)
		return
	}
	ok(c, http.StatusOK, sessionBody(sess))
}

// SignInAnonymous godoc
// @ID          signInAnonymous
// @Summary     Anonymous sign-in
// @Description Creates a credential-less account and returns a bearer token.
// @Tags        Auth
// @Produce     json
//
// @Success     201  {object} handlers.SessionResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/anonymous [post]
func (h *Handlers) SignInAnonymous(c *gin.Context) {
	sess, err := h.authSvc.SignInAnonymously(c.Request.Context())
	if err != nil {
		failAuthErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sessionBody(sess))
}

// SignOut godoc
// @ID          signOut
// @Summary     Sign out
// @Description Tokens are stateless; this discards the caller's triage session and always succeeds.
// @Tags        Auth
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Router      /auth/signout [post]
func (h *Handlers) SignOut(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	h.triageSvc.EndSession(uid)
	noContent(c)
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete account
// @Description Removes the account together with its watches and entitlements.
// @Tags        Auth
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object} handlers.ErrorResponse "Account not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/account [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	if err := h.authSvc.DeleteAccount(c.Request.Context(), uid); err != nil {
		failAuthErr(c, err)
		return
	}
	h.triageSvc.EndSession(uid)
	noContent(c)
}

// RequestEmailChange godoc
// @ID          requestEmailChange
// @Summary     Stage an email change
// @Description Records a pending address; the live address only changes once the token is confirmed.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.EmailChangeRequest  true  "New address"
//
// @Success     202  {object} map[string]string
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     409  {object} handlers.ErrorResponse "Email already in use"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/email-change [post]
func (h *Handlers) RequestEmailChange(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	var req EmailChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "new_email required")
		return
	}
	// The token is returned directly; a mailer integration would deliver it
	// to the new address instead.
	token, err := h.authSvc.RequestEmailChange(c.Request.Context(), uid, req.NewEmail)
	if err != nil {
		failAuthErr(c, err)
		return
	}
	ok(c, http.StatusAccepted, gin.H{"token": token})
}

// ConfirmEmailChange godoc
// @ID          confirmEmailChange
// @Summary     Confirm an email change
// @Description Applies the staged address when the verification token matches.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.TokenConfirmRequest  true  "Verification token"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad token"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/email-change/confirm [post]
func (h *Handlers) ConfirmEmailChange(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	var req TokenConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}
	if err := h.authSvc.ConfirmEmailChange(c.Request.Context(), uid, req.Token); err != nil {
		failAuthErr(c, err)
		return
	}
	noContent(c)
}

// RequestPasswordReset godoc
// @ID          requestPasswordReset
// @Summary     Start a password reset
// @Description Issues a reset token for the account. The response never discloses whether the address exists.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PasswordResetRequest  true  "Account address"
//
// @Success     202  {object} map[string]string
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/password-reset [post]
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email required")
		return
	}
	token, err := h.authSvc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// Same response as success so the endpoint cannot be used to
			// probe for registered addresses.
			ok(c, http.StatusAccepted, gin.H{"status": "accepted"})
			return
		}
		failAuthErr(c, err)
		return
	}
	// The token is returned directly; a mailer integration would deliver it.
	ok(c, http.StatusAccepted, gin.H{"status": "accepted", "token": token})
}

// ConfirmPasswordReset godoc
// @ID          confirmPasswordReset
// @Summary     Complete a password reset
// @Description Sets a new password when the reset token matches.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PasswordResetConfirmRequest  true  "Reset confirmation"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad token or weak password"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/password-reset/confirm [post]
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, token, and new_password required")
		return
	}
	if err := h.authSvc.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		failAuthErr(c, err)
		return
	}
	noContent(c)
}
