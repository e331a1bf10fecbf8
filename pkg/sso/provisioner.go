package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/taskforge/pkg/storage"
)

// UserStore is the part of the store the provisioner needs
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateUser(ctx context.Context, user *storage.User) error
}

// Provisioner finds or creates the local user for a verified identity
type Provisioner struct {
	store UserStore
}

// NewProvisioner creates a new Provisioner
func NewProvisioner(store UserStore) *Provisioner {
	return &Provisioner{store: store}
}

// Provision returns the user owning identity's email, creating one on first
// login. Unverified emails are refused.
func (p *Provisioner) Provision(ctx context.Context, identity *Identity) (*storage.User, error) {
	if identity.Email == "" {
		return nil, ErrMissingEmail
	}
	if !identity.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	user, err := p.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &storage.User{
		Name:         name,
		Email:        email,
		AuthProvider: ProviderGoogle,
	}
	if err := p.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// lost a race with a concurrent first login
			return p.store.GetUserByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
