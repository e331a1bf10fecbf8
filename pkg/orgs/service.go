package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const (
	msgNotFound = "Organization not found"
	msgExists   = "Organization with this name already exists"
)

// Service implements organization management on an OrganizationStore
type Service struct {
	store storage.OrganizationStore
}

// NewService creates a new Service
func NewService(store storage.OrganizationStore) *Service {
	return &Service{store: store}
}

// Create creates an organization with createdBy as its first admin
func (s *Service) Create(ctx context.Context, in CreateInput, createdBy string) (*storage.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	org := &storage.Organization{
		Name:      name,
		CreatedBy: createdBy,
		Admins:    []string{createdBy},
		IsActive:  true,
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflict(msgExists)
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeOrgCreate, audit.EventStatusSuccess).
		On(audit.ResourceTypeOrganization, org.ID).
		By(createdBy))
	return org, nil
}

// Get retrieves an active organization by id
func (s *Service) Get(ctx context.Context, id string) (*storage.Organization, error) {
	org, err := s.store.GetOrganization(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if !org.IsActive {
		return nil, apperr.NotFound(msgNotFound)
	}
	return org, nil
}

// List returns one page of active organizations, newest first
func (s *Service) List(ctx context.Context, req PageRequest) (*Page, error) {
	req = req.normalize()
	items, total, err := s.store.ListOrganizations(ctx, req.Limit, req.offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	if items == nil {
		items = []*storage.Organization{}
	}
	return &Page{
		Items: items,
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
		Pages: (total + req.Limit - 1) / req.Limit,
	}, nil
}

// Update renames an organization and/or replaces its admin list
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*storage.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		if !strings.EqualFold(name, org.Name) {
			if err := s.ensureNameFree(ctx, name, org.ID); err != nil {
				return nil, err
			}
		}
		org.Name = name
	}
	if in.Admins != nil {
		org.Admins = dedupe(in.Admins)
	}

	if err := s.store.UpdateOrganization(ctx, org); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflict(msgExists)
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// Delete soft-deletes an organization
func (s *Service) Delete(ctx context.Context, id string) error {
	org, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	org.IsActive = false
	if err := s.store.UpdateOrganization(ctx, org); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	audit.Record(ctx, audit.NewEvent(ctx, audit.EventTypeResourceDelete, audit.EventStatusSuccess).
		On(audit.ResourceTypeOrganization, org.ID))
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.store.GetOrganizationByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check organization name: %w", err)
	case existing.ID != selfID:
		return apperr.Conflict(msgExists)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
