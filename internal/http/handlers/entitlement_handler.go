// Entitlement HTTP handlers.
//
// This file exposes the premium entitlement surface:
//   - GET  /entitlement           (current status)
//   - POST /entitlement/purchase  (activate)
//   - POST /entitlement/restore   (re-read; never activates)
//
// The entitlement row is the local stand-in for the billing provider's
// customer record; the contract mirrors its status/purchase/restore calls.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// EntitlementService defines the premium entitlement operations consumed by
// HTTP handlers.
type EntitlementService interface {
	// Status reports whether the user holds an active entitlement.
	Status(ctx context.Context, userID string) (bool, error)
	// Purchase activates the entitlement.
	Purchase(ctx context.Context, userID string) (bool, error)
	// Restore re-reads the entitlement state.
	Restore(ctx context.Context, userID string) (bool, error)
}

// EntitlementResponse reports the premium flag.
type EntitlementResponse struct {
	Premium bool `json:"premium"`
}

// EntitlementStatus godoc
// @ID          entitlementStatus
// @Summary     Premium status
// @Description Reports whether the current user holds the premium entitlement.
// @Tags        Entitlement
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} handlers.EntitlementResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entitlement [get]
func (h *Handlers) EntitlementStatus(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	active, err := h.entSvc.Status(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, EntitlementResponse{Premium: active})
}

// EntitlementPurchase godoc
// @ID          entitlementPurchase
// @Summary     Purchase premium
// @Description Activates the premium entitlement and returns the updated status.
// @Tags        Entitlement
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} handlers.EntitlementResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entitlement/purchase [post]
func (h *Handlers) EntitlementPurchase(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	active, err := h.entSvc.Purchase(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, EntitlementResponse{Premium: active})
}

// EntitlementRestore godoc
// @ID          entitlementRestore
// @Summary     Restore purchases
// @Description Re-reads the entitlement state. Restoring never activates an entitlement that was not purchased.
// @Tags        Entitlement
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} handlers.EntitlementResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entitlement/restore [post]
func (h *Handlers) EntitlementRestore(c *gin.Context) {
	uid, okAuth := requireUser(c)
	if !okAuth {
		return
	}
	active, err := h.entSvc.Restore(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, EntitlementResponse{Premium: active})
}
