// Package cv hands a selected posting to a document generation service.
package cv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/metrics"
	"github.com/spigell/jobscout/internal/profile"
)

var (
	// ErrInsufficientProfile means the profile has neither skills nor a summary.
	ErrInsufficientProfile = errors.New("profile has no skills or summary to build a CV from")
	// ErrServiceUnavailable means the document service could not be reached.
	ErrServiceUnavailable = errors.New("document service unavailable")
)

const (
	OutcomeGenerated    = "generated"
	OutcomeInsufficient = "insufficient_profile"
	OutcomeUnavailable  = "unavailable"
	OutcomeFailed       = "failed"
)

// Optimization describes how the document was tailored.
type Optimization struct {
	Projects  int     `json:"projects"`
	Skills    int     `json:"skills"`
	Relevance float64 `json:"relevance"`
}

// Generation is an immutable record of one produced document.
type Generation struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	PostingKey   string       `json:"posting_key"`
	TemplateID   string       `json:"template_id"`
	DocumentURL  string       `json:"document_url"`
	Optimization Optimization `json:"optimization"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Request is what a document service renders.
type Request struct {
	UserID     string
	TemplateID string
	Profile    *profile.Profile
	Posting    *discovery.Posting
}

// Document is a rendered CV.
type Document struct {
	URL          string
	Optimization Optimization
}

// DocumentService renders CVs. Unreachable services return errors wrapping
// ErrServiceUnavailable.
type DocumentService interface {
	Render(ctx context.Context, req Request) (*Document, error)
}

// Repository persists generations.
type Repository interface {
	SaveGeneration(ctx context.Context, g *Generation) error
}

// Generator is what callers of the trigger depend on.
type Generator interface {
	Generate(ctx context.Context, session *profile.Session, templateID string, posting *discovery.Posting) (*Generation, error)
}

type Trigger struct {
	service DocumentService
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewTrigger(service DocumentService, repo Repository, m *metrics.Metrics, log *zap.Logger) *Trigger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trigger{service: service, repo: repo, metrics: m, logger: log, now: time.Now}
}

// Generate produces a new document for posting. Each call creates a new generation.
func (t *Trigger) Generate(ctx context.Context, session *profile.Session, templateID string, posting *discovery.Posting) (*Generation, error) {
	if session == nil || posting == nil {
		return nil, errors.New("session and posting are required")
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return nil, errors.New("template id is required")
	}

	log := logger.WithRun(t.logger, session.UserID, posting.CompanyID)

	if !session.Profile.HasAssets() {
		t.metrics.ObserveCV(OutcomeInsufficient)
		return nil, ErrInsufficientProfile
	}

	doc, err := t.service.Render(ctx, Request{
		UserID:     session.UserID,
		TemplateID: templateID,
		Profile:    session.Profile,
		Posting:    posting,
	})
	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, ErrServiceUnavailable) {
			outcome = OutcomeUnavailable
		}
		t.metrics.ObserveCV(outcome)
		log.Warn("cv generation failed", zap.String("posting_key", posting.Key), zap.Error(err))
		return nil, err
	}
	if doc == nil || strings.TrimSpace(doc.URL) == "" {
		t.metrics.ObserveCV(OutcomeFailed)
		return nil, fmt.Errorf("document service returned an empty document")
	}

	g := &Generation{
		ID:           uuid.NewString(),
		UserID:       session.UserID,
		PostingKey:   posting.Key,
		TemplateID:   templateID,
		DocumentURL:  doc.URL,
		Optimization: doc.Optimization,
		CreatedAt:    t.now().UTC(),
	}

	if err := t.repo.SaveGeneration(ctx, g); err != nil {
		t.metrics.ObserveCV(OutcomeFailed)
		return nil, fmt.Errorf("saving generation: %w", err)
	}

	t.metrics.ObserveCV(OutcomeGenerated)
	log.Info("cv generated",
		zap.String("generation_id", g.ID),
		zap.String("posting_key", g.PostingKey),
		zap.String("template", g.TemplateID),
	)
	return g, nil
}
