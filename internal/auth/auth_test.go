package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/premiselabs/tenet/pkg/types"
)

func TestAuthenticate(t *testing.T) {
	a := &TokenAuthenticator{MemberToken: "m-token", LeadToken: "l-token"}

	cases := []struct {
		name     string
		header   string
		wantRole types.Role
		wantErr  error
	}{
		{"lead token", "Bearer l-token", types.RoleLead, nil},
		{"member token", "Bearer m-token", types.RoleMember, nil},
		{"wrong token", "Bearer nope", "", ErrInvalidToken},
		{"missing header", "", "", ErrMissingBearer},
		{"not bearer", "Basic abc", "", ErrInvalidToken},
		{"empty bearer", "Bearer ", "", ErrInvalidToken},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/v1/decisions", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		actor, err := a.Authenticate(r)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s: err=%v want %v", tc.name, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if actor.Role != tc.wantRole {
			t.Fatalf("%s: role=%s want %s", tc.name, actor.Role, tc.wantRole)
		}
	}
}

func TestEmptyConfiguredTokenIsDisabled(t *testing.T) {
	a := &TokenAuthenticator{MemberToken: "m-token"}
	r := httptest.NewRequest("GET", "/v1/decisions", nil)
	r.Header.Set("Authorization", "Bearer ")
	if _, err := a.Authenticate(r); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty bearer accepted: %v", err)
	}

	r.Header.Set("Authorization", "Bearer m-token")
	actor, err := a.Authenticate(r)
	if err != nil || actor.Role != types.RoleMember {
		t.Fatalf("member auth failed: %+v %v", actor, err)
	}
	if actor.Elevated() {
		t.Fatalf("member must not be elevated")
	}
}
