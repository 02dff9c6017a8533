// Package store persists companies, preferences, profiles, CV generations
// and application records.
package store

import (
	"context"
	"errors"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/tracker"
)

// ErrNotFound is returned for unknown companies, profiles and generations.
// Unknown applications return tracker.ErrNotFound.
var ErrNotFound = errors.New("not found")

// Store is the backend every command talks to.
type Store interface {
	profile.Source
	profile.Sink
	cv.Repository
	tracker.Repository

	ListCompanies(ctx context.Context) ([]profile.Company, error)
	GetCompany(ctx context.Context, id string) (*profile.Company, error)
	SaveCompany(ctx context.Context, c profile.Company) error

	SaveProfile(ctx context.Context, p *profile.Profile) error

	ListGenerations(ctx context.Context, userID string) ([]cv.Generation, error)

	Close()
}
