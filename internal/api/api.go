// Package api exposes the engine over HTTP. Every route except /healthz
// requires a bearer token; the token decides whether the caller acts as a
// member or a lead.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/premiselabs/tenet/internal/auth"
	"github.com/premiselabs/tenet/internal/engine"
	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/pkg/types"
)

// Handler carries the dependencies of the HTTP layer.
type Handler struct {
	Auth   auth.Authenticator
	Engine *engine.Engine
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrMissingBearer) || errors.Is(err, auth.ErrInvalidToken) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}
	status := errcode.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: string(errcode.CodeOf(err))})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errcode.New(errcode.CodeValidation, "invalid request body: %v", err)
	}
	return nil
}

var (
	errInvalidAfterCursor = errcode.New(errcode.CodeValidation, "after must be a non-negative integer")
	errInvalidLimit       = errcode.New(errcode.CodeValidation, "limit must be a non-negative integer")
)

// authed wraps a handler with bearer authentication and hands it the actor.
func (h *Handler) authed(fn func(http.ResponseWriter, *http.Request, types.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.Auth.Authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		fn(w, r, actor)
	}
}

// resolvedFilter parses the optional ?resolved= query flag.
func resolvedFilter(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get("resolved")
	switch raw {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, errcode.New(errcode.CodeValidation, "resolved must be true or false")
	}
}
