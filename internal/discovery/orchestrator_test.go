package discovery

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/jobscout/internal/profile"
)

type stubSearcher struct {
	name     string
	postings []Posting
	err      error
	messages []string

	mu    sync.Mutex
	calls int
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(ctx context.Context, _ Query, report Reporter) ([]Posting, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	for _, m := range s.messages {
		report(m)
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Posting, len(s.postings))
	copy(out, s.postings)
	return out, nil
}

// blockingSearcher waits until its context is cancelled.
type blockingSearcher struct {
	started chan struct{}
}

func (b *blockingSearcher) Name() string { return "blocking" }

func (b *blockingSearcher) Search(ctx context.Context, _ Query, report Reporter) ([]Posting, error) {
	report("started")
	close(b.started)
	<-ctx.Done()
	report("after cancel")
	return nil, ctx.Err()
}

var (
	acme  = profile.Company{ID: "c1", Name: "Acme", Industry: "Software"}
	prefs = profile.Preferences{Skills: []string{"React"}, Locations: []string{"Berlin"}}
)

func TestDiscoverFirstStrategyWithResultsWins(t *testing.T) {
	failing := &stubSearcher{name: "hh", err: errors.New("bad status: 503")}
	empty := &stubSearcher{name: "gemini"}
	demo := &stubSearcher{name: "demo", postings: []Posting{
		{Title: "Frontend Developer", Location: "Berlin", Provenance: ProvenanceDemo},
		{Title: "Backend Developer", Location: "Berlin", Provenance: ProvenanceDemo},
	}}
	unused := &stubSearcher{name: "unused", postings: []Posting{{Title: "never"}}}

	result := New([]Searcher{failing, empty, demo, unused}).Discover(context.Background(), Request{Company: acme, Preferences: prefs})

	if !result.Success || result.Total != 2 {
		t.Fatalf("expected success with 2 postings, got %+v", result)
	}
	if result.Meta.Strategy != "demo" {
		t.Fatalf("expected demo strategy, got %q", result.Meta.Strategy)
	}
	if !reflect.DeepEqual(result.Meta.Attempted, []string{"hh", "gemini", "demo"}) {
		t.Fatalf("unexpected attempted strategies: %v", result.Meta.Attempted)
	}
	if unused.calls != 0 {
		t.Fatalf("strategies after a successful one must not be called")
	}
	if failing.calls != 1 {
		t.Fatalf("failed strategy must not be retried, got %d calls", failing.calls)
	}

	first := result.Postings[0]
	if first.Key != "c1-frontend-developer-0" {
		t.Fatalf("unexpected key: %q", first.Key)
	}
	if first.CompanyID != "c1" || first.CompanyName != "Acme" || first.Industry != "Software" {
		t.Fatalf("company data not filled: %+v", first)
	}
	if result.Postings[1].Key != "c1-backend-developer-1" {
		t.Fatalf("unexpected second key: %q", result.Postings[1].Key)
	}
}

func TestDiscoverZeroResultsIsNotSuccess(t *testing.T) {
	result := New([]Searcher{&stubSearcher{name: "demo"}}).Discover(context.Background(), Request{Company: acme, Preferences: prefs})

	if result.Success || result.Total != 0 {
		t.Fatalf("zero results must not be reported as success: %+v", result)
	}
	if result.Outcome() != OutcomeEmpty {
		t.Fatalf("expected empty outcome, got %q", result.Outcome())
	}
	if !strings.Contains(result.Reason, "no postings found for Acme") {
		t.Fatalf("expected a human readable reason, got %q", result.Reason)
	}
}

func TestDiscoverAllStrategiesFail(t *testing.T) {
	result := New([]Searcher{
		&stubSearcher{name: "hh", err: errors.New("connection refused")},
		&stubSearcher{name: "gemini", err: errors.New("quota exceeded")},
	}).Discover(context.Background(), Request{Company: acme, Preferences: prefs})

	if result.Success || result.Outcome() != OutcomeFailed {
		t.Fatalf("expected failure, got %+v", result)
	}
	for _, part := range []string{"hh: connection refused", "gemini: quota exceeded"} {
		if !strings.Contains(result.Reason, part) {
			t.Fatalf("expected reason to mention %q, got %q", part, result.Reason)
		}
	}
}

func TestDiscoverIsIdempotentWithDeterministicBackend(t *testing.T) {
	o := New([]Searcher{NewDemoSearcher()})
	req := Request{Company: acme, Preferences: prefs}

	first := o.Discover(context.Background(), req)
	second := o.Discover(context.Background(), req)

	if !reflect.DeepEqual(first.Postings, second.Postings) {
		t.Fatalf("expected identical postings across runs")
	}
	if first.Total != 3 {
		t.Fatalf("expected 3 demo postings, got %d", first.Total)
	}
}

func TestDiscoverDropsBlankAndDuplicatePostings(t *testing.T) {
	searcher := &stubSearcher{name: "hh", postings: []Posting{
		{Title: "Go Developer", URL: "https://jobs.example/1"},
		{Title: "Go Developer (copy)", URL: "https://jobs.example/1/"},
		{Title: "   "},
		{Title: "SRE", Location: "Berlin"},
		{Title: "sre", Location: "berlin"},
		{Title: "Analyst", Salary: &profile.SalaryRange{}},
	}}

	result := New([]Searcher{searcher}).Discover(context.Background(), Request{Company: acme, Preferences: prefs})

	if result.Total != 3 {
		t.Fatalf("expected 3 postings after dedup, got %d: %+v", result.Total, result.Postings)
	}
	if result.Postings[2].Salary != nil {
		t.Fatalf("empty salary ranges should be cleared")
	}
	if result.Postings[2].Key != "c1-analyst-2" {
		t.Fatalf("keys should be assigned after dedup, got %q", result.Postings[2].Key)
	}
}

func TestDiscoverValidatesRequest(t *testing.T) {
	o := New([]Searcher{NewDemoSearcher()})

	result := o.Discover(context.Background(), Request{Company: profile.Company{ID: "c1"}, Preferences: prefs})
	if result.Success || !strings.Contains(result.Reason, "company") {
		t.Fatalf("expected company validation failure, got %+v", result)
	}

	result = o.Discover(context.Background(), Request{Company: acme})
	if result.Success || !strings.Contains(result.Reason, "invalid preferences") {
		t.Fatalf("expected preference validation failure, got %+v", result)
	}

	result = New(nil).Discover(context.Background(), Request{Company: acme, Preferences: prefs})
	if result.Success || result.Outcome() != OutcomeFailed {
		t.Fatalf("expected failure without strategies, got %+v", result)
	}
}

func TestRunStreamsProgressEvents(t *testing.T) {
	searcher := &stubSearcher{
		name:     "gemini",
		messages: []string{"locating careers page", "extracting postings"},
		postings: []Posting{{Title: "Engineer"}},
	}

	run := New([]Searcher{searcher}).Start(context.Background(), Request{Company: acme, Preferences: prefs})

	var messages []string
	for ev := range run.Events() {
		if ev.Strategy != "gemini" {
			t.Fatalf("unexpected strategy on event: %+v", ev)
		}
		messages = append(messages, ev.Message)
	}

	want := []string{
		"searching Acme with gemini",
		"locating careers page",
		"extracting postings",
		"gemini found 1 postings",
	}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("unexpected events:\n got %v\nwant %v", messages, want)
	}
	if !run.Wait().Success {
		t.Fatalf("expected success")
	}
}

func TestRunCancelStopsSearchAndEvents(t *testing.T) {
	blocking := &blockingSearcher{started: make(chan struct{})}
	next := &stubSearcher{name: "demo", postings: []Posting{{Title: "x"}}}

	run := New([]Searcher{blocking, next}).Start(context.Background(), Request{Company: acme, Preferences: prefs})

	<-blocking.started
	run.Cancel()

	result := run.Wait()
	if result.Success || result.Outcome() != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", result)
	}
	if next.calls != 0 {
		t.Fatalf("no strategy may run after cancellation")
	}

	for ev := range run.Events() {
		if ev.Message == "after cancel" {
			t.Fatalf("received an event after cancellation")
		}
	}
}

// chattySearcher reports progress before blocking until cancelled.
type chattySearcher struct {
	reports int
	started chan struct{}
}

func (c *chattySearcher) Name() string { return "chatty" }

func (c *chattySearcher) Search(ctx context.Context, _ Query, report Reporter) ([]Posting, error) {
	for i := 0; i < c.reports; i++ {
		report(fmt.Sprintf("progress %d", i))
	}
	close(c.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunCancelDiscardsBufferedEvents(t *testing.T) {
	searcher := &chattySearcher{reports: 10, started: make(chan struct{})}

	run := New([]Searcher{searcher}).Start(context.Background(), Request{Company: acme, Preferences: prefs})

	<-searcher.started
	run.Cancel()

	received := 0
	for range run.Events() {
		received++
	}
	if received != 0 {
		t.Fatalf("expected no events after Cancel, got %d", received)
	}
	if outcome := run.Wait().Outcome(); outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %q", outcome)
	}

	// A second Cancel is a no-op.
	run.Cancel()
}

func TestDiscoverTimeoutMovesToNextStrategy(t *testing.T) {
	blocking := &blockingSearcher{started: make(chan struct{})}
	next := &stubSearcher{name: "demo", postings: []Posting{{Title: "Engineer"}}}

	result := New([]Searcher{blocking, next}, WithTimeout(10*time.Millisecond)).
		Discover(context.Background(), Request{Company: acme, Preferences: prefs})

	if !result.Success || result.Meta.Strategy != "demo" {
		t.Fatalf("expected fallback after timeout, got %+v", result)
	}
}

func TestPostingPercent(t *testing.T) {
	cases := map[float64]int{-0.2: 0, 0: 0, 0.456: 46, 0.999: 100, 1.3: 100}
	for score, want := range cases {
		p := Posting{Score: score}
		if got := p.Percent(); got != want {
			t.Fatalf("Percent(%v) = %d, want %d", score, got, want)
		}
	}
}
