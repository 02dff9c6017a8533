// Package presenter keeps the per-company discovery state the user looks at:
// ranked postings, the relevance floor and the CV progress of each posting.
package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/filtering"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/matching"
	"github.com/spigell/jobscout/internal/profile"
)

// DefaultRelevanceFloor hides postings below 60% with the best matches filter.
const DefaultRelevanceFloor = 0.6

var (
	// ErrBusy means a discovery for the company is already running.
	ErrBusy = errors.New("discovery already in progress for this company")
	// ErrUnknownPosting means the posting is not part of the company's last successful run.
	ErrUnknownPosting = errors.New("posting not found")
	// ErrInvalidTransition wraps rejected posting state changes.
	ErrInvalidTransition = errors.New("invalid posting state transition")
)

// Discoverer starts discovery runs. *discovery.Orchestrator implements it.
type Discoverer interface {
	Start(ctx context.Context, req discovery.Request) *discovery.Run
}

// Filter selects what View returns.
type Filter struct {
	BestMatches bool
}

// PostingView is a ranked posting with its CV progress.
type PostingView struct {
	discovery.Posting
	State        PostingState `json:"state"`
	Viewed       bool         `json:"viewed"`
	GenerationID string       `json:"generation_id,omitempty"`
	DocumentURL  string       `json:"document_url,omitempty"`
}

// Snapshot is a copy of a company's state.
type Snapshot struct {
	Company  profile.Company `json:"company"`
	State    State           `json:"state"`
	Reason   string          `json:"reason,omitempty"`
	Strategy string          `json:"strategy,omitempty"`
	Elapsed  time.Duration   `json:"elapsed,omitempty"`
	Postings []PostingView   `json:"postings"`
	// Hidden counts postings below the relevance floor.
	Hidden    int                          `json:"hidden,omitempty"`
	Reviews   map[string]*ai.FitAssessment `json:"-"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

type companyState struct {
	company   profile.Company
	state     State
	reason    string
	strategy  string
	elapsed   time.Duration
	postings  []PostingView
	reviews   map[string]*ai.FitAssessment
	updatedAt time.Time
}

// Options configures a Presenter.
type Options struct {
	Scorer *matching.Scorer
	// Filters builds a fresh filter chain for every run. Nil runs no filters.
	Filters        func() []filtering.Filter
	FilterConfig   *filtering.Config
	History        filtering.History
	Matcher        ai.Matcher
	RelevanceFloor float64
	// Progress receives every discovery event.
	Progress func(companyID string, ev discovery.Event)
	Logger   *zap.Logger
}

type Presenter struct {
	mu        sync.Mutex
	companies map[string]*companyState

	discoverer Discoverer
	scorer     *matching.Scorer
	filters    func() []filtering.Filter
	filterCfg  *filtering.Config
	history    filtering.History
	matcher    ai.Matcher
	floor      float64
	progress   func(string, discovery.Event)
	logger     *zap.Logger
	now        func() time.Time
}

func New(d Discoverer, opts Options) *Presenter {
	p := &Presenter{
		companies:  make(map[string]*companyState),
		discoverer: d,
		scorer:     opts.Scorer,
		filters:    opts.Filters,
		filterCfg:  opts.FilterConfig,
		history:    opts.History,
		matcher:    opts.Matcher,
		floor:      opts.RelevanceFloor,
		progress:   opts.Progress,
		logger:     opts.Logger,
		now:        time.Now,
	}
	if p.scorer == nil {
		p.scorer = matching.MustScorer(matching.DefaultWeights())
	}
	if p.floor <= 0 || p.floor > 1 {
		p.floor = DefaultRelevanceFloor
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// RelevanceFloor is the minimum score shown with the best matches filter.
func (p *Presenter) RelevanceFloor() float64 { return p.floor }

// Discover runs discovery for company and ranks the result. A second call
// for a company that is still discovering fails with ErrBusy. Discovery
// failures are reported in the snapshot state, not as an error.
func (p *Presenter) Discover(ctx context.Context, session *profile.Session, company profile.Company) (*Snapshot, error) {
	if session == nil {
		return nil, errors.New("session is required")
	}
	id := strings.TrimSpace(company.ID)
	if id == "" {
		return nil, errors.New("company id is required")
	}

	p.mu.Lock()
	cs, ok := p.companies[id]
	if !ok {
		cs = &companyState{state: StateIdle}
		p.companies[id] = cs
	}
	if cs.state == StateDiscovering {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	cs.company = company
	cs.state = StateDiscovering
	cs.reason = ""
	cs.updatedAt = p.now()
	p.mu.Unlock()

	log := logger.WithRun(p.logger, session.UserID, id)

	run := p.discoverer.Start(ctx, discovery.Request{Company: company, Preferences: session.Preferences})
	for ev := range run.Events() {
		if p.progress != nil {
			p.progress(id, ev)
		}
	}
	result := run.Wait()

	state := stateFromOutcome(result.Outcome())
	reason := result.Reason
	var (
		ranked  []discovery.Posting
		reviews map[string]*ai.FitAssessment
	)

	if state == StateSuccess {
		var err error
		ranked, reviews, err = p.filterAndRank(ctx, session, result.Postings, log)
		switch {
		case err != nil:
			state, reason = StateFailed, fmt.Sprintf("filtering postings: %v", err)
		case len(ranked) == 0:
			state, reason = StateEmpty, fmt.Sprintf("all %d postings for %s were filtered out", len(result.Postings), company.Name)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cs.state = state
	cs.reason = reason
	cs.strategy = result.Meta.Strategy
	cs.elapsed = result.Meta.Elapsed
	cs.updatedAt = p.now()
	cs.postings = nil
	cs.reviews = reviews
	if state == StateSuccess {
		cs.postings = make([]PostingView, 0, len(ranked))
		for _, posting := range ranked {
			cs.postings = append(cs.postings, PostingView{Posting: posting, State: PostingUnviewed})
		}
	}

	log.Info("presenter updated",
		zap.String("state", string(state)),
		zap.Int("postings", len(cs.postings)),
		zap.String("reason", reason),
	)

	snapshot := p.snapshot(cs, Filter{})
	return &snapshot, nil
}

func (p *Presenter) filterAndRank(ctx context.Context, session *profile.Session, postings []discovery.Posting, log *zap.Logger) ([]discovery.Posting, map[string]*ai.FitAssessment, error) {
	var reviews map[string]*ai.FitAssessment
	if p.filters != nil {
		var err error
		postings, reviews, err = filtering.Run(ctx, p.filterCfg, filtering.Deps{
			Logger:  log,
			Session: session,
			History: p.history,
			Matcher: p.matcher,
		}, p.filters(), postings)
		if err != nil {
			return nil, nil, err
		}
	}
	return p.scorer.Rank(postings, session.Preferences), reviews, nil
}

// View returns the company's current snapshot. Unknown companies are idle.
func (p *Presenter) View(companyID string, filter Filter) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs, ok := p.companies[companyID]
	if !ok {
		return Snapshot{Company: profile.Company{ID: companyID}, State: StateIdle}
	}
	return p.snapshot(cs, filter)
}

// Views returns snapshots of every company seen so far, ordered by name.
func (p *Presenter) Views(filter Filter) []Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Snapshot, 0, len(p.companies))
	for _, cs := range p.companies {
		out = append(out, p.snapshot(cs, filter))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Company.Name != out[j].Company.Name {
			return out[i].Company.Name < out[j].Company.Name
		}
		return out[i].Company.ID < out[j].Company.ID
	})
	return out
}

// snapshot copies cs. Callers hold p.mu.
func (p *Presenter) snapshot(cs *companyState, filter Filter) Snapshot {
	s := Snapshot{
		Company:   cs.company,
		State:     cs.state,
		Reason:    cs.reason,
		Strategy:  cs.strategy,
		Elapsed:   cs.elapsed,
		Postings:  make([]PostingView, 0, len(cs.postings)),
		Reviews:   maps.Clone(cs.reviews),
		UpdatedAt: cs.updatedAt,
	}
	for _, pv := range cs.postings {
		if filter.BestMatches && pv.Score < p.floor {
			s.Hidden++
			continue
		}
		pv.Requirements = append([]string(nil), pv.Requirements...)
		s.Postings = append(s.Postings, pv)
	}
	return s
}

// Posting returns one posting of the company's last successful run.
func (p *Presenter) Posting(companyID, key string) (*PostingView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pv, err := p.find(companyID, key)
	if err != nil {
		return nil, err
	}
	out := *pv
	return &out, nil
}

// find returns the stored posting. Callers hold p.mu.
func (p *Presenter) find(companyID, key string) (*PostingView, error) {
	cs, ok := p.companies[companyID]
	if !ok || cs.state != StateSuccess {
		return nil, fmt.Errorf("%w: %s has no successful discovery", ErrUnknownPosting, companyID)
	}
	for i := range cs.postings {
		if cs.postings[i].Key == key {
			return &cs.postings[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPosting, key)
}

func (p *Presenter) transition(companyID, key string, to PostingState, apply func(*PostingView)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pv, err := p.find(companyID, key)
	if err != nil {
		return err
	}
	if !postingTransitionAllowed(pv.State, to) {
		return &TransitionError{PostingKey: key, From: pv.State, To: to}
	}
	pv.State = to
	if apply != nil {
		apply(pv)
	}
	return nil
}

// MarkViewed records that the user opened the posting. Its CV state is unchanged.
func (p *Presenter) MarkViewed(companyID, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pv, err := p.find(companyID, key)
	if err != nil {
		return err
	}
	pv.Viewed = true
	return nil
}

// RequestCV moves the posting to cv_requested.
func (p *Presenter) RequestCV(companyID, key string) error {
	return p.transition(companyID, key, PostingCVRequested, func(pv *PostingView) { pv.Viewed = true })
}

// CVReady attaches the generation to a posting in cv_requested.
func (p *Presenter) CVReady(companyID, key string, g *cv.Generation) error {
	if g == nil {
		return errors.New("generation is required")
	}
	return p.transition(companyID, key, PostingCVReady, func(pv *PostingView) {
		pv.GenerationID = g.ID
		pv.DocumentURL = g.DocumentURL
	})
}

// CVFailed returns a posting in cv_requested to unviewed so it can be retried.
func (p *Presenter) CVFailed(companyID, key string) error {
	return p.transition(companyID, key, PostingUnviewed, nil)
}

// GenerateCV drives a posting through cv_requested to cv_ready with gen.
// On failure the posting goes back to unviewed and the error is returned.
func (p *Presenter) GenerateCV(ctx context.Context, gen cv.Generator, session *profile.Session, companyID, key, templateID string) (*cv.Generation, error) {
	if err := p.RequestCV(companyID, key); err != nil {
		return nil, err
	}

	pv, err := p.Posting(companyID, key)
	if err != nil {
		return nil, err
	}

	g, err := gen.Generate(ctx, session, templateID, &pv.Posting)
	if err != nil {
		if rerr := p.CVFailed(companyID, key); rerr != nil {
			p.logger.Warn("resetting posting state", zap.String("posting_key", key), zap.Error(rerr))
		}
		return nil, err
	}

	if err := p.CVReady(companyID, key, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DumpToTmpFile writes every snapshot as JSON to a new temp file and returns its name.
func (p *Presenter) DumpToTmpFile(filter Filter) (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Views(filter)); err != nil {
		return "", err
	}
	return file.Name(), nil
}
