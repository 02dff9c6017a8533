package filtering

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/discovery"
)

type aiFitFilter struct {
	disabled    bool
	reason      string
	config      *AIConfig
	assessments map[string]*ai.FitAssessment
}

// NewAIFit creates the AI-based filtering step.
func NewAIFit() Filter {
	return &aiFitFilter{}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return !f.disabled }

func (f *aiFitFilter) Validate(cfg *Config) error {
	f.config = nil
	if cfg != nil {
		f.config = cfg.AI
	}
	if !f.IsEnabled() {
		return nil
	}
	if cfg == nil || cfg.AI == nil {
		return fmt.Errorf("ai configuration is required when ai filter is enabled")
	}
	if cfg.AI.Gemini == nil {
		return fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}
	if strings.TrimSpace(cfg.AI.Gemini.Model) == "" {
		return fmt.Errorf("gemini model is required when ai filter is enabled")
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, Step, error) {
	initial := len(postings)
	if deps.Matcher == nil {
		deps.Logger.Info("ai matcher is not configured; skipping ai_fit filter")
		return postings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}
	if deps.Session == nil {
		return postings, Step{}, fmt.Errorf("session is required for AI evaluation")
	}

	approved, assessments := evaluatePostings(ctx, deps, postings)

	f.assessments = make(map[string]*ai.FitAssessment, len(assessments))
	maps.Copy(f.assessments, assessments)

	left := len(approved)
	return approved, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *aiFitFilter) Assessments() map[string]*ai.FitAssessment {
	if f.assessments == nil {
		return map[string]*ai.FitAssessment{}
	}
	return f.assessments
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["minimum_fit_score"] = fmt.Sprintf("%.2f", f.config.MinimumFitScore)
		if f.config.Gemini != nil {
			details["model"] = f.config.Gemini.Model
			details["max_retries"] = strconv.Itoa(f.config.Gemini.MaxRetries)
			details["max_log_length"] = strconv.Itoa(f.config.Gemini.MaxLogLength)
		}
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// evaluatePostings keeps postings the matcher approves. A posting whose
// evaluation failed is kept with the error attached.
func evaluatePostings(ctx context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, map[string]*ai.FitAssessment) {
	logger := deps.Logger
	approved := make([]discovery.Posting, 0, len(postings))
	assessments := make(map[string]*ai.FitAssessment)

	for _, posting := range postings {
		if ctx.Err() != nil {
			approved = append(approved, posting)
			continue
		}

		assessment, err := deps.Matcher.Evaluate(ctx, deps.Session, &posting)
		if err != nil {
			logger.Warn("AI evaluation failed",
				zap.String("posting_key", posting.Key),
				zap.Error(err),
			)
			posting.Assessment = &discovery.Assessment{Error: err.Error()}
			approved = append(approved, posting)
			continue
		}

		if !assessment.Fit {
			logger.Info("posting rejected by AI provider",
				zap.String("posting_key", posting.Key),
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			continue
		}

		logger.Info("posting approved by AI",
			zap.String("posting_key", posting.Key),
			zap.Float64("ai_score", assessment.Score),
		)

		posting.Assessment = &discovery.Assessment{
			Fit:     assessment.Fit,
			Score:   assessment.Score,
			Reason:  assessment.Reason,
			Message: assessment.Message,
		}
		approved = append(approved, posting)
		assessments[posting.Key] = assessment
	}

	if len(postings) != len(approved) {
		logger.Info("AI filtering completed",
			zap.Int("initial_postings", len(postings)),
			zap.Int("approved_postings", len(approved)),
		)
	}

	return approved, assessments
}
