// Package auth - verifier.go defines the narrow interface to the corporate
// identity provider. The login endpoint hands the IdP assertion to a verifier
// and receives a verified identity back; everything about how the assertion
// was produced (SAML, OIDC, whatever the IdP speaks) stays outside this
// codebase.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ExternalIdentity is the verified identity returned by the corporate IdP.
type ExternalIdentity struct {
	Email      string
	Name       string
	Department string
	EmployeeID string
}

// IdentityVerifier verifies an opaque IdP assertion and returns the identity
// it attests to. Implementations must return an error for any assertion they
// cannot positively verify.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*ExternalIdentity, error)
}

// ErrAssertionInvalid is returned when an assertion cannot be verified.
var ErrAssertionInvalid = errors.New("identity assertion could not be verified")

// DevVerifier accepts assertions of the form "email" or "email|Full Name"
// without any cryptographic verification. It exists so the service can run
// locally without a corporate IdP and refuses to operate outside dev mode.
//
// When Domain is non-empty, only emails under that domain are accepted.
type DevVerifier struct {
	Domain string
}

// Verify implements IdentityVerifier.
func (v *DevVerifier) Verify(_ context.Context, assertion string) (*ExternalIdentity, error) {
	if !isDevMode() {
		return nil, errors.New("dev identity verifier is disabled outside dev mode")
	}

	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return nil, ErrAssertionInvalid
	}

	email := assertion
	name := ""
	if i := strings.IndexByte(assertion, '|'); i >= 0 {
		email = strings.TrimSpace(assertion[:i])
		name = strings.TrimSpace(assertion[i+1:])
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return nil, ErrAssertionInvalid
	}
	if v.Domain != "" && !strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(v.Domain)) {
		return nil, ErrAssertionInvalid
	}

	if name == "" {
		name = email[:at]
	}

	slog.Warn("dev identity verifier accepted unverified assertion", "email", email)

	return &ExternalIdentity{Email: strings.ToLower(email), Name: name}, nil
}
