// Package scheduler reruns discovery for every stored company on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
)

// Companies lists the companies to rediscover.
type Companies interface {
	ListCompanies(ctx context.Context) ([]profile.Company, error)
}

// SessionFunc builds a fresh session for every cycle so preference edits are picked up.
type SessionFunc func(ctx context.Context) (*profile.Session, error)

// CycleFunc receives the presenter after each completed cycle.
type CycleFunc func(p *presenter.Presenter)

type Scheduler struct {
	cron      *cron.Cron
	spec      string
	companies Companies
	presenter *presenter.Presenter
	session   SessionFunc
	onCycle   CycleFunc
	logger    *zap.Logger

	// running guards against overlapping cycles when one outlasts the interval.
	running sync.Mutex
	// cycles tracks cycles started outside of cron.
	cycles sync.WaitGroup
}

func New(spec string, companies Companies, p *presenter.Presenter, session SessionFunc, onCycle CycleFunc, logger *zap.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		companies: companies,
		presenter: p,
		session:   session,
		onCycle:   onCycle,
		logger:    logger,
	}, nil
}

// Start registers the job and runs one cycle right away.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.spec))

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		s.RunOnce(ctx)
	}()
	return nil
}

// Stop waits for a running cycle to finish, including the one Start launched.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cycles.Wait()
	s.logger.Info("scheduler stopped")
}

// RunOnce discovers every company once. It returns the number of companies
// processed, or zero when another cycle is still running.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	if !s.running.TryLock() {
		s.logger.Warn("previous cycle still running, skipping")
		return 0
	}
	defer s.running.Unlock()

	session, err := s.session(ctx)
	if err != nil {
		s.logger.Error("loading session", zap.Error(err))
		return 0
	}

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		s.logger.Error("listing companies", zap.Error(err))
		return 0
	}
	if len(companies) == 0 {
		s.logger.Info("no companies configured, nothing to discover")
		return 0
	}

	s.logger.Info("discovery cycle started", zap.Int("companies", len(companies)))

	done := 0
	for _, c := range companies {
		if ctx.Err() != nil {
			break
		}
		if session.Preferences.Excludes(c.ID) {
			continue
		}
		snap, err := s.presenter.Discover(ctx, session, c)
		if err != nil {
			s.logger.Warn("skipping company", zap.String("company", c.ID), zap.Error(err))
			continue
		}
		done++
		s.logger.Info("company discovered",
			zap.String("company", c.ID),
			zap.String("state", string(snap.State)),
			zap.Int("postings", len(snap.Postings)),
		)
	}

	if s.onCycle != nil {
		s.onCycle(s.presenter)
	}
	s.logger.Info("discovery cycle complete", zap.Int("companies", done))
	return done
}
