package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/filtering"
	"github.com/spigell/jobscout/internal/profile"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Transition is one entry of an application's history.
type Transition struct {
	From Status    `json:"from,omitempty"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}

// Application is an application made for one posting.
type Application struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	PostingKey   string       `json:"posting_key"`
	CompanyID    string       `json:"company_id"`
	Title        string       `json:"title"`
	URL          string       `json:"url,omitempty"`
	GenerationID string       `json:"generation_id,omitempty"`
	Status       Status       `json:"status"`
	History      []Transition `json:"history"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Repository persists applications. Get returns ErrNotFound for unknown ids
// and for ids owned by another user.
type Repository interface {
	CreateApplication(ctx context.Context, a *Application) error
	UpdateApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, userID, id string) (*Application, error)
	ListApplications(ctx context.Context, userID string) ([]Application, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create records a submitted application for posting, optionally linked to a generation.
func (s *Service) Create(ctx context.Context, session *profile.Session, gen *cv.Generation, posting *discovery.Posting) (*Application, error) {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return nil, errors.New("session with user id is required")
	}
	if posting == nil || posting.Key == "" {
		return nil, errors.New("posting is required")
	}

	now := s.now().UTC()
	a := &Application{
		ID:         uuid.NewString(),
		UserID:     session.UserID,
		PostingKey: posting.Key,
		CompanyID:  posting.CompanyID,
		Title:      posting.Title,
		URL:        posting.URL,
		Status:     StatusSubmitted,
		History:    []Transition{{To: StatusSubmitted, At: now}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if gen != nil {
		a.GenerationID = gen.ID
	}

	if err := s.repo.CreateApplication(ctx, a); err != nil {
		return nil, fmt.Errorf("saving application: %w", err)
	}

	s.logger.Info("application created",
		zap.String("application_id", a.ID),
		zap.String("posting_key", a.PostingKey),
		zap.String("user_id", a.UserID),
	)
	return a, nil
}

// Transition moves an application to a new status.
func (s *Service) Transition(ctx context.Context, userID, id string, to Status, note string) (*Application, error) {
	a, err := s.repo.GetApplication(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if !IsTransitionAllowed(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}

	now := s.now().UTC()
	a.History = append(a.History, Transition{From: a.Status, To: to, At: now, Note: strings.TrimSpace(note)})
	a.Status = to
	a.UpdatedAt = now

	if err := s.repo.UpdateApplication(ctx, a); err != nil {
		return nil, fmt.Errorf("updating application: %w", err)
	}

	s.logger.Info("application status changed",
		zap.String("application_id", a.ID),
		zap.String("status", string(to)),
	)
	return a, nil
}

// List returns the user's applications, newest first. An empty status lists all.
func (s *Service) List(ctx context.Context, userID string, status Status) ([]Application, error) {
	all, err := s.repo.ListApplications(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if status == "" {
		return all, nil
	}
	out := make([]Application, 0, len(all))
	for _, a := range all {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Applied lets the applied_history filter skip postings already applied to.
func (s *Service) Applied(ctx context.Context, userID string) ([]filtering.AppliedPosting, error) {
	apps, err := s.repo.ListApplications(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]filtering.AppliedPosting, 0, len(apps))
	for _, a := range apps {
		out = append(out, filtering.AppliedPosting{
			PostingKey: a.PostingKey,
			CompanyID:  a.CompanyID,
			Title:      a.Title,
			URL:        a.URL,
		})
	}
	return out, nil
}
