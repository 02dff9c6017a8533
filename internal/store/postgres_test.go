package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/tracker"
)

func testPostgres(t *testing.T) *Postgres {
	t.Helper()

	url := os.Getenv("JOBSCOUT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("JOBSCOUT_TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresPool() error = %v", err)
	}
	p := NewPostgres(pool, nil)
	t.Cleanup(p.Close)

	if err := p.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return p
}

func TestPostgresRoundTrip(t *testing.T) {
	p := testPostgres(t)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	company := profile.Company{ID: "c-" + uuid.NewString(), Name: "Acme", Industry: "Software", Founded: 2015}
	if err := p.SaveCompany(ctx, company); err != nil {
		t.Fatalf("SaveCompany() error = %v", err)
	}
	got, err := p.GetCompany(ctx, company.ID)
	if err != nil || *got != company {
		t.Fatalf("unexpected company %+v, %v", got, err)
	}

	if prefs, err := p.GetPreferences(ctx, user); err != nil || len(prefs.Skills) != 0 {
		t.Fatalf("expected empty preferences, got %+v, %v", prefs, err)
	}
	if err := p.SavePreferences(ctx, user, profile.Preferences{Skills: []string{"Go"}, Locations: []string{"Berlin"}}); err != nil {
		t.Fatalf("SavePreferences() error = %v", err)
	}
	if prefs, _ := p.GetPreferences(ctx, user); len(prefs.Skills) != 1 || prefs.Locations[0] != "Berlin" {
		t.Fatalf("unexpected preferences %+v", prefs)
	}

	if _, err := p.GetProfile(ctx, user); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if err := p.SaveGeneration(ctx, &cv.Generation{ID: uuid.NewString(), UserID: user, PostingKey: "k", TemplateID: "modern", DocumentURL: "https://x", Optimization: cv.Optimization{Skills: 2}, CreatedAt: now}); err != nil {
		t.Fatalf("SaveGeneration() error = %v", err)
	}
	gens, err := p.ListGenerations(ctx, user)
	if err != nil || len(gens) != 1 || gens[0].Optimization.Skills != 2 {
		t.Fatalf("unexpected generations %+v, %v", gens, err)
	}

	svc := tracker.NewService(p, nil)
	a, err := svc.Create(ctx, profile.NewSession(user, profile.Preferences{}, nil), nil, &postingFixture)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Transition(ctx, user, a.ID, tracker.StatusRejected, "no reply"); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	apps, err := p.ListApplications(ctx, user)
	if err != nil || len(apps) != 1 || apps[0].Status != tracker.StatusRejected || len(apps[0].History) != 2 {
		t.Fatalf("unexpected applications %+v, %v", apps, err)
	}
}
