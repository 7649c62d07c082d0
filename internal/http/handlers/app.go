package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"imageserver/internal/auth"
	"imageserver/internal/domain"
	"imageserver/internal/infra"
	"imageserver/internal/service"
)

// App bundles the handler dependencies.
type App struct {
	Svc            *service.Service
	Auth           *auth.Verifier
	Logger         infra.Logger
	MaxUploadBytes int64
}

func NewApp(svc *service.Service, verifier *auth.Verifier, logger infra.Logger, maxUploadBytes int64) *App {
	return &App{Svc: svc, Auth: verifier, Logger: logger, MaxUploadBytes: maxUploadBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func (a *App) payloadTooLarge(w http.ResponseWriter) {
	a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large",
		fmt.Sprintf("max allowed file size is %dB", a.MaxUploadBytes))
}

// domainError maps service errors onto HTTP responses. Anything outside the
// known taxonomy becomes an opaque internal error.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid id")
	case errors.Is(err, domain.ErrInvalidAngle):
		a.error(w, http.StatusBadRequest, "bad_request", "angle must be a non-zero multiple of 90 degrees")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported or undetectable file type")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "image not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "conflicting asset state")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "an internal error has occurred")
	}
}

// bearerValid reports whether the request carries a valid bearer key.
func (a *App) bearerValid(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return a.Auth.Verify(parts[1])
}

// requireAuth writes a 401 and returns false when the request is not
// authorized.
func (a *App) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if !a.bearerValid(r) {
		a.domainError(w, domain.ErrUnauthorized)
		return false
	}
	return true
}
