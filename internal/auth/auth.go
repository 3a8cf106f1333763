// Package auth resolves HTTP requests to actors. Two static bearer tokens
// are configured: one grants the member role, the other the lead role.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/premiselabs/tenet/pkg/types"
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

// Authenticator resolves a request to an acting identity.
type Authenticator interface {
	Authenticate(r *http.Request) (types.Actor, error)
}

// TokenAuthenticator matches the bearer token against the configured role
// tokens. An empty configured token disables that role.
type TokenAuthenticator struct {
	MemberToken string
	LeadToken   string
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (types.Actor, error) {
	bearer, err := extractBearer(r)
	if err != nil {
		return types.Actor{}, err
	}

	if tokenMatches(bearer, a.LeadToken) {
		return types.Actor{Subject: "lead", Role: types.RoleLead}, nil
	}
	if tokenMatches(bearer, a.MemberToken) {
		return types.Actor{Subject: "member", Role: types.RoleMember}, nil
	}
	return types.Actor{}, ErrInvalidToken
}

func tokenMatches(bearer, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bearer), []byte(configured)) == 1
}

func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
