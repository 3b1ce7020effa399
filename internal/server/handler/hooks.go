// Package handler serves the identity platform's lifecycle hooks.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ajanottaja/identity-bridge/internal/bridge"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/telemetry"
	"github.com/ajanottaja/identity-bridge/internal/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	RegistrationPath = "/hooks/post-user-registration"
	LoginPath        = "/hooks/post-login"

	maxEventBytes = 64 << 10
)

// RegistrationResponse is returned by the registration hook.
type RegistrationResponse struct {
	AccountID string `json:"account_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// LoginResponse lists the claims the identity platform should set.
type LoginResponse struct {
	AccountID string                                `json:"account_id"`
	Claims    map[bridge.TokenTarget]map[string]any `json:"claims"`
}

// Handler serves the hook endpoints.
type Handler struct {
	bridge         *bridge.Service
	metrics        *telemetry.Metrics
	suppressErrors bool
}

// NewHandler creates a hook handler. With suppressRegistrationErrors set a
// failed registration sync is answered with 202 instead of an error status.
func NewHandler(svc *bridge.Service, metrics *telemetry.Metrics, suppressRegistrationErrors bool) *Handler {
	return &Handler{
		bridge:         svc,
		metrics:        metrics,
		suppressErrors: suppressRegistrationErrors,
	}
}

// RegisterRoutes mounts the hooks on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(RegistrationPath, h.HandleRegistration)
	r.Post(LoginPath, h.HandleLogin)
}

// HandleRegistration handles POST /hooks/post-user-registration
func (h *Handler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	var event bridge.RegistrationEvent
	if err := decodeEvent(r, &event); err != nil {
		h.fail(w, "post-user-registration", err)
		return
	}

	acct, err := h.bridge.Register(r.Context(), event)
	if err != nil {
		if h.suppressErrors && !errors.Is(err, bridge.ErrInvalidEvent) {
			logger.FromContext(r.Context()).Warn("registration sync failed, suppressing",
				zap.String("code", bridge.Code(err)),
				zap.Error(err),
			)
			h.respond(w, "post-user-registration", http.StatusAccepted, RegistrationResponse{
				Status: "accepted",
				Error:  bridge.Code(err),
			})
			return
		}
		h.fail(w, "post-user-registration", err)
		return
	}

	h.respond(w, "post-user-registration", http.StatusOK, RegistrationResponse{
		AccountID: acct.ID,
		Status:    "created",
	})
}

// HandleLogin handles POST /hooks/post-login. Any failure is returned as an
// error status so the identity platform does not issue tokens without the claim.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var event bridge.LoginEvent
	if err := decodeEvent(r, &event); err != nil {
		h.fail(w, "post-login", err)
		return
	}

	claims := bridge.NewClaimSet()
	acct, err := h.bridge.Login(r.Context(), event, claims)
	if err != nil {
		h.fail(w, "post-login", err)
		return
	}

	h.respond(w, "post-login", http.StatusOK, LoginResponse{
		AccountID: acct.ID,
		Claims: map[bridge.TokenTarget]map[string]any{
			bridge.AccessToken: claims.Claims(bridge.AccessToken),
			bridge.IDToken:     claims.Claims(bridge.IDToken),
		},
	})
}

func (h *Handler) respond(w http.ResponseWriter, hook string, status int, body any) {
	h.metrics.ObserveHook(hook, status)
	utils.WriteJSON(w, status, body)
}

func (h *Handler) fail(w http.ResponseWriter, hook string, err error) {
	status := StatusFor(err)
	h.metrics.ObserveHook(hook, status)
	utils.WriteError(w, bridge.Code(err), err.Error(), status)
}

// StatusFor maps a bridge error to the HTTP status returned to the caller.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, bridge.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrConfigMissing):
		return http.StatusInternalServerError
	case errors.Is(err, bridge.ErrUpstreamUnavailable):
		if bridge.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrUpstreamRejected), errors.Is(err, bridge.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeEvent(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrInvalidEvent, err)
	}
	return nil
}
