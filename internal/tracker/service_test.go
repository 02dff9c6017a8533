package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

type fakeRepo struct {
	mu   sync.Mutex
	apps map[string]Application
	err  error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{apps: map[string]Application{}} }

func (r *fakeRepo) CreateApplication(_ context.Context, a *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.apps[a.ID] = *a
	return nil
}

func (r *fakeRepo) UpdateApplication(_ context.Context, a *Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.apps[a.ID] = *a
	return nil
}

func (r *fakeRepo) GetApplication(_ context.Context, userID, id string) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *fakeRepo) ListApplications(_ context.Context, userID string) ([]Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Application
	for _, a := range r.apps {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

var (
	session = profile.NewSession("u1", profile.Preferences{Skills: []string{"Go"}}, nil)
	posting = &discovery.Posting{Key: "c1-go-developer-0", CompanyID: "c1", Title: "Go Developer", URL: "https://jobs.example/1"}
)

func newTestService(repo Repository) *Service {
	s := NewService(repo, nil)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return s
}

func TestCreateStartsSubmitted(t *testing.T) {
	repo := newFakeRepo()
	s := newTestService(repo)

	a, err := s.Create(context.Background(), session, &cv.Generation{ID: "gen-1"}, posting)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Status != StatusSubmitted || a.GenerationID != "gen-1" || a.PostingKey != posting.Key {
		t.Fatalf("unexpected application %+v", a)
	}
	if len(a.History) != 1 || a.History[0].To != StatusSubmitted {
		t.Fatalf("expected one submitted history entry, got %+v", a.History)
	}
	if _, ok := repo.apps[a.ID]; !ok {
		t.Fatalf("application not persisted")
	}
}

func TestCreateValidatesInput(t *testing.T) {
	s := newTestService(newFakeRepo())
	if _, err := s.Create(context.Background(), nil, nil, posting); err == nil {
		t.Fatalf("expected error without session")
	}
	if _, err := s.Create(context.Background(), session, nil, &discovery.Posting{}); err == nil {
		t.Fatalf("expected error without posting key")
	}

	repo := newFakeRepo()
	repo.err = errors.New("disk full")
	if _, err := newTestService(repo).Create(context.Background(), session, nil, posting); err == nil {
		t.Fatalf("expected write failure to surface")
	}
}

func TestTransitionRecordsHistory(t *testing.T) {
	s := newTestService(newFakeRepo())
	ctx := context.Background()

	a, err := s.Create(ctx, session, nil, posting)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a, err = s.Transition(ctx, "u1", a.ID, StatusInterview, "  phone screen ")
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if a.Status != StatusInterview || len(a.History) != 2 {
		t.Fatalf("unexpected application %+v", a)
	}
	last := a.History[1]
	if last.From != StatusSubmitted || last.To != StatusInterview || last.Note != "phone screen" {
		t.Fatalf("unexpected history entry %+v", last)
	}
	if !a.UpdatedAt.After(a.CreatedAt) {
		t.Fatalf("updated_at should move forward")
	}

	if _, err := s.Transition(ctx, "u1", a.ID, StatusHired, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := s.Transition(ctx, "u1", a.ID, StatusRejected, ""); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if _, err := s.Transition(ctx, "u1", a.ID, StatusWithdrawn, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal status must not change, got %v", err)
	}
}

func TestTransitionUnknownOrForeignApplication(t *testing.T) {
	s := newTestService(newFakeRepo())
	ctx := context.Background()

	if _, err := s.Transition(ctx, "u1", "missing", StatusInterview, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a, _ := s.Create(ctx, session, nil, posting)
	if _, err := s.Transition(ctx, "someone-else", a.ID, StatusInterview, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("another user's application must not be found, got %v", err)
	}
}

func TestListFiltersByStatusNewestFirst(t *testing.T) {
	s := newTestService(newFakeRepo())
	ctx := context.Background()

	first, _ := s.Create(ctx, session, nil, posting)
	second, _ := s.Create(ctx, session, nil, &discovery.Posting{Key: "c1-sre-1", CompanyID: "c1", Title: "SRE"})
	if _, err := s.Transition(ctx, "u1", first.ID, StatusInterview, ""); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	all, err := s.List(ctx, "u1", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	interviews, _ := s.List(ctx, "u1", StatusInterview)
	if len(interviews) != 1 || interviews[0].ID != first.ID {
		t.Fatalf("unexpected filtered list %+v", interviews)
	}
}

func TestAppliedFeedsHistoryFilter(t *testing.T) {
	s := newTestService(newFakeRepo())
	if _, err := s.Create(context.Background(), session, nil, posting); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	applied, err := s.Applied(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if len(applied) != 1 || applied[0].PostingKey != posting.Key || applied[0].URL != posting.URL {
		t.Fatalf("unexpected applied postings %+v", applied)
	}
}
