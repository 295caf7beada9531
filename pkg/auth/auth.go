// Package auth provides authentication support for storage service requests.
//
//go:generate mockgen -destination=./mocks/auth.go . Authenticator
package auth

import (
	"fmt"
	"net/http"
)

// Authenticator defines the interface for applying authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	// APIKeyAuthType represents "<scheme> <username>:<api_key>" header authentication.
	APIKeyAuthType Type = "api_key"
)

// DefaultScheme is the Authorization scheme the Archivematica storage service expects.
const DefaultScheme = "ApiKey"

// APIKeyAuth carries the static credentials sent with every request.
type APIKeyAuth struct {
	Scheme   string
	Username string
	APIKey   string
}

// Apply sets the Authorization header on the HTTP request.
func (a APIKeyAuth) Apply(req *http.Request) error {
	if a.Username == "" || a.APIKey == "" {
		return fmt.Errorf("api key credentials are incomplete")
	}
	req.Header.Set("Authorization", a.HeaderValue())
	return nil
}

// HeaderValue renders the Authorization header value.
func (a APIKeyAuth) HeaderValue() string {
	scheme := a.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	return scheme + " " + a.Username + ":" + a.APIKey
}

// Type returns the authentication type (APIKeyAuthType).
func (a APIKeyAuth) Type() Type { return APIKeyAuthType }

// String hides the key so credentials can be logged safely.
func (a APIKeyAuth) String() string {
	return fmt.Sprintf("%s:****", a.Username)
}
