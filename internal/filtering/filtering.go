// Package filtering drops discovered postings the user should not see before
// they are scored.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

// Filter represents a single filtering step applied to postings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, Step, error)
}

// AppliedPosting is what the applied_history step needs from an application record.
type AppliedPosting struct {
	PostingKey string
	CompanyID  string
	Title      string
	URL        string
}

// History lists postings the user already applied to.
type History interface {
	Applied(ctx context.Context, userID string) ([]AppliedPosting, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	Session *profile.Session
	History History
	Matcher ai.Matcher
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	// ExcludedCompanies are company ids dropped for every user.
	ExcludedCompanies []string
	SeenFile          string
	AI                *AIConfig
}

// AIConfig stores AI-related configuration used by the filters.
type AIConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
	Gemini          *GeminiConfig
}

// GeminiConfig stores Gemini provider configuration.
type GeminiConfig struct {
	Model        string
	MaxRetries   int
	MaxLogLength int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard steps in order.
func Default() []Filter {
	return []Filter{NewExcludedCompanies(), NewAppliedHistory(false), NewSeenFile(), NewAIFit()}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the postings left
// together with the AI assessments keyed by posting key.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, postings []discovery.Posting) ([]discovery.Posting, map[string]*ai.FitAssessment, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	assessments := make(map[string]*ai.FitAssessment)
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, postings)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		postings = next

		if collector, ok := step.(interface {
			Assessments() map[string]*ai.FitAssessment
		}); ok {
			for key, assessment := range collector.Assessments() {
				assessments[key] = assessment
			}
		}
	}

	return postings, assessments, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the postings for which drop is false and the keys of the dropped ones.
func keep(postings []discovery.Posting, drop func(p *discovery.Posting) bool) ([]discovery.Posting, []string) {
	out := make([]discovery.Posting, 0, len(postings))
	var dropped []string
	for i := range postings {
		if drop(&postings[i]) {
			dropped = append(dropped, postings[i].Key)
			continue
		}
		out = append(out, postings[i])
	}
	return out, dropped
}
