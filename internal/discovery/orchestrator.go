// Package discovery finds job postings for a company by asking a chain of
// search strategies in order.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/metrics"
	"github.com/spigell/jobscout/internal/profile"
)

const (
	defaultEventBuffer = 64

	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Request describes one discovery run.
type Request struct {
	Company     profile.Company
	Preferences profile.Preferences
}

// Meta is execution metadata of a run.
type Meta struct {
	Elapsed   time.Duration `json:"elapsed"`
	Strategy  string        `json:"strategy,omitempty"`
	Attempted []string      `json:"attempted,omitempty"`
}

// Result is the outcome of a run. Failures are reported here, never as a Go error.
type Result struct {
	Success  bool      `json:"success"`
	Total    int       `json:"total"`
	Postings []Posting `json:"postings,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Meta     Meta      `json:"meta"`

	outcome string
}

// Outcome is one of the Outcome* constants.
func (r *Result) Outcome() string {
	if r.outcome != "" {
		return r.outcome
	}
	if r.Success {
		return OutcomeSuccess
	}
	if r.Total == 0 && r.Reason == "" {
		return OutcomeEmpty
	}
	return OutcomeFailed
}

// Event is a progress notification of a run.
type Event struct {
	Strategy string    `json:"strategy,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Orchestrator runs the search strategies.
type Orchestrator struct {
	strategies  []Searcher
	limiter     *rate.Limiter
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
	eventBuffer int
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimiter gates every strategy call with a shared limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithTimeout bounds each strategy call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventBuffer sets how many undelivered events a run keeps before dropping.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

func New(strategies []Searcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		strategies:  strategies,
		logger:      zap.NewNop(),
		eventBuffer: defaultEventBuffer,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Strategies returns the configured strategy names in order.
func (o *Orchestrator) Strategies() []string {
	names := make([]string, 0, len(o.strategies))
	for _, s := range o.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Run is one in-flight discovery. Its event stream is finite and closed when
// the run ends.
type Run struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	result *Result
	logger *zap.Logger
}

// Events streams progress notifications. Undelivered events beyond the buffer are dropped.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed once the result is available.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel aborts the run and discards pending events. It returns once the
// searcher has given up, so a caller still ranging over Events sees no
// further events.
func (r *Run) Cancel() {
	r.once.Do(func() {
		r.cancel()
		for range r.events {
		}
	})
}

// Wait blocks until the run finishes.
func (r *Run) Wait() *Result {
	<-r.done
	return r.result
}

func (r *Run) emit(ctx context.Context, ev Event) {
	if ctx.Err() != nil {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Debug("dropping progress event", zap.String("message", ev.Message))
	}
}

// Start launches a run in the background.
func (o *Orchestrator) Start(ctx context.Context, req Request) *Run {
	ctx, cancel := context.WithCancel(ctx)
	run := &Run{
		events: make(chan Event, o.eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		logger: logger.WithFields(o.logger, zap.String(logger.FieldCompany, req.Company.ID)),
	}

	go func() {
		defer cancel()
		result := o.run(ctx, run, req)
		close(run.events)
		run.result = result
		close(run.done)
	}()

	return run
}

// Discover runs synchronously, logging progress events.
func (o *Orchestrator) Discover(ctx context.Context, req Request) *Result {
	run := o.Start(ctx, req)
	for ev := range run.Events() {
		o.logger.Debug("discovery progress",
			zap.String(logger.FieldCompany, req.Company.ID),
			zap.String(logger.FieldStrategy, ev.Strategy),
			zap.String("message", ev.Message),
		)
	}
	return run.Wait()
}

func (o *Orchestrator) run(ctx context.Context, run *Run, req Request) *Result {
	start := o.now()
	log := run.logger

	result := &Result{}
	finish := func(outcome string) *Result {
		result.outcome = outcome
		result.Total = len(result.Postings)
		result.Success = outcome == OutcomeSuccess
		result.Meta.Elapsed = o.now().Sub(start)
		o.metrics.ObserveDiscovery(result.Meta.Strategy, outcome, result.Meta.Elapsed)
		log.Info("discovery finished",
			zap.String("outcome", outcome),
			zap.String(logger.FieldStrategy, result.Meta.Strategy),
			zap.Int("total", result.Total),
			zap.Duration("elapsed", result.Meta.Elapsed),
			zap.String("reason", result.Reason),
		)
		return result
	}

	if strings.TrimSpace(req.Company.ID) == "" || strings.TrimSpace(req.Company.Name) == "" {
		result.Reason = "company id and name are required"
		return finish(OutcomeFailed)
	}
	if err := req.Preferences.Validate(); err != nil {
		result.Reason = err.Error()
		return finish(OutcomeFailed)
	}
	if len(o.strategies) == 0 {
		result.Reason = "no search strategy is configured"
		return finish(OutcomeFailed)
	}

	query := Query{Company: req.Company, Preferences: req.Preferences}
	var failures []string
	failed := false

	for _, strategy := range o.strategies {
		if ctx.Err() != nil {
			break
		}

		name := strategy.Name()
		result.Meta.Attempted = append(result.Meta.Attempted, name)
		report := func(message string) {
			run.emit(ctx, Event{Strategy: name, Message: message, At: o.now()})
		}
		report(fmt.Sprintf("searching %s with %s", req.Company.Name, name))

		postings, err := o.call(ctx, strategy, query, report)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failed = true
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Warn("search strategy failed", zap.String(logger.FieldStrategy, name), zap.Error(err))
			report(fmt.Sprintf("%s failed: %v", name, err))
			continue
		}

		postings = normalize(req.Company, postings)
		if len(postings) == 0 {
			failures = append(failures, fmt.Sprintf("%s: no postings", name))
			report(fmt.Sprintf("%s returned no postings", name))
			continue
		}

		for _, p := range postings {
			o.metrics.AddPostings(string(p.Provenance), 1)
		}
		result.Postings = postings
		result.Meta.Strategy = name
		report(fmt.Sprintf("%s found %d postings", name, len(postings)))
		return finish(OutcomeSuccess)
	}

	if ctx.Err() != nil {
		result.Reason = "discovery cancelled"
		return finish(OutcomeCancelled)
	}

	if failed {
		result.Reason = fmt.Sprintf("discovery failed for %s: %s", req.Company.Name, strings.Join(failures, "; "))
		return finish(OutcomeFailed)
	}

	result.Reason = fmt.Sprintf("no postings found for %s", req.Company.Name)
	return finish(OutcomeEmpty)
}

func (o *Orchestrator) call(ctx context.Context, s Searcher, q Query, report Reporter) ([]Posting, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	postings, err := s.Search(callCtx, q, report)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("timed out after %s", o.timeout)
	}
	return postings, err
}
