package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
)

type staticCompanies []profile.Company

func (s staticCompanies) ListCompanies(context.Context) ([]profile.Company, error) { return s, nil }

func staticSession(prefs profile.Preferences) SessionFunc {
	return func(context.Context) (*profile.Session, error) {
		return profile.NewSession("u1", prefs, nil), nil
	}
}

func TestNewValidatesSchedule(t *testing.T) {
	if _, err := New("", nil, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected an error for an empty schedule")
	}
	if _, err := New("every day", nil, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected an error for an invalid schedule")
	}
	if _, err := New("@every 6h", nil, nil, nil, nil, nil); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

func TestRunOnceDiscoversEveryCompany(t *testing.T) {
	p := presenter.New(discovery.New([]discovery.Searcher{discovery.NewDemoSearcher()}), presenter.Options{})
	companies := staticCompanies{
		{ID: "acme", Name: "Acme"},
		{ID: "globex", Name: "Globex"},
		{ID: "initech", Name: "Initech"},
	}
	prefs := profile.Preferences{Skills: []string{"Go"}, ExcludedCompanies: []string{"initech"}}

	var cycles int
	s, err := New("@every 1h", companies, p, staticSession(prefs), func(*presenter.Presenter) { cycles++ }, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := s.RunOnce(context.Background()); got != 2 {
		t.Fatalf("expected 2 companies discovered, got %d", got)
	}
	if cycles != 1 {
		t.Fatalf("expected the cycle callback once, got %d", cycles)
	}
	if state := p.View("acme", presenter.Filter{}).State; state != presenter.StateSuccess {
		t.Fatalf("expected acme discovered, got %s", state)
	}
	if state := p.View("initech", presenter.Filter{}).State; state != presenter.StateIdle {
		t.Fatalf("excluded companies must not be discovered, got %s", state)
	}
}

func TestRunOnceSessionFailure(t *testing.T) {
	p := presenter.New(discovery.New([]discovery.Searcher{discovery.NewDemoSearcher()}), presenter.Options{})
	s, _ := New("@every 1h", staticCompanies{{ID: "acme", Name: "Acme"}}, p, func(context.Context) (*profile.Session, error) {
		return nil, errors.New("backend down")
	}, nil, nil)

	if got := s.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected no discovery without a session, got %d", got)
	}
}

func TestStopWaitsForInitialCycle(t *testing.T) {
	p := presenter.New(discovery.New([]discovery.Searcher{discovery.NewDemoSearcher()}), presenter.Options{})
	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	session := func(context.Context) (*profile.Session, error) {
		close(entered)
		<-release
		return profile.NewSession("u1", profile.Preferences{Skills: []string{"Go"}}, nil), nil
	}
	onCycle := func(*presenter.Presenter) { close(finished) }

	s, err := New("@every 1h", staticCompanies{{ID: "acme", Name: "Acme"}}, p, session, onCycle, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatalf("Stop returned while the first cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	select {
	case <-finished:
	default:
		t.Fatalf("expected the first cycle to complete before Stop returned")
	}
}
