package orgs

import "github.com/platinummonkey/taskforge/pkg/storage"

const (
	// DefaultPageSize is used when a request names no limit
	DefaultPageSize = 20
	// MaxPageSize caps the limit of one page
	MaxPageSize = 100
)

// CreateInput is the body of an organization create request
type CreateInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateInput is the body of an organization update request
type UpdateInput struct {
	Name   *string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Admins []string `json:"admins,omitempty"`
}

// PageRequest selects one page, counting from 1
type PageRequest struct {
	Page  int
	Limit int
}

// normalize clamps the request to valid bounds
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of organizations with the overall total
type Page struct {
	Items []*storage.Organization `json:"organizations"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
	Pages int                     `json:"pages"`
}
