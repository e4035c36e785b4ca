package http

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when no owner identity can be resolved.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves the owner identity of a request. The deployment in
// front of this service terminates the actual login flow.
type Authenticator interface {
	Authenticate(r *http.Request) (ownerID string, err error)
}

// HeaderAuthenticator trusts an identity header injected by the gateway.
type HeaderAuthenticator struct {
	Header string
}

var _ Authenticator = HeaderAuthenticator{}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(a.Header))
	if owner == "" {
		return "", ErrUnauthenticated
	}
	return owner, nil
}
