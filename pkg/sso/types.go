package sso

import (
	"context"
	"errors"
)

const (
	// GoogleIssuer is the OIDC issuer of Google accounts
	GoogleIssuer = "https://accounts.google.com"
	// ProviderGoogle is stored as User.AuthProvider for Google accounts
	ProviderGoogle = "google"
)

var (
	// ErrEmailNotVerified is returned when the provider has not verified the email
	ErrEmailNotVerified = errors.New("email address is not verified")
	// ErrMissingEmail is returned when the ID token carries no email claim
	ErrMissingEmail = errors.New("missing email in ID token")
)

// Config configures an OIDC provider
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// IssuerURL defaults to GoogleIssuer
	IssuerURL string
	// Scopes defaults to openid, email, profile
	Scopes []string
}

// Validate reports the first missing field
func (c Config) Validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("client_id is required")
	case c.ClientSecret == "":
		return errors.New("client_secret is required")
	case c.RedirectURL == "":
		return errors.New("redirect_url is required")
	}
	return nil
}

// Identity is the verified subset of ID token claims used for login
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Provider is an OpenID Connect identity provider
type Provider interface {
	// AuthCodeURL returns the provider login URL carrying state
	AuthCodeURL(state string) string
	// Exchange redeems an authorization code and returns the verified identity
	Exchange(ctx context.Context, code string) (*Identity, error)
}
