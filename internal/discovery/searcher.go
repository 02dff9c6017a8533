package discovery

import (
	"context"

	"github.com/spigell/jobscout/internal/profile"
)

// Query is what a searcher is asked for.
type Query struct {
	Company     profile.Company
	Preferences profile.Preferences
}

// Reporter receives free-text progress messages from a searcher.
type Reporter func(message string)

// Searcher is an external job-search capability.
type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query, report Reporter) ([]Posting, error)
}
