// Package ai holds the provider independent shapes used by the AI backed steps.
package ai

import (
	"context"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

// Matcher reviews whether a posting suits the candidate.
type Matcher interface {
	Evaluate(ctx context.Context, session *profile.Session, posting *discovery.Posting) (*FitAssessment, error)
}

// TailoredCV is a CV rewritten for one posting.
type TailoredCV struct {
	Markdown string
	// Projects and Skills count what the CV highlights.
	Projects  int
	Skills    int
	Relevance float64
}

// Tailorer writes a CV for a posting from the stored profile.
type Tailorer interface {
	Tailor(ctx context.Context, candidate *profile.Profile, posting *discovery.Posting, templateID string) (*TailoredCV, error)
}
