package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/ai/gemini"
	"github.com/spigell/jobscout/internal/artifacts"
	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/filtering"
	"github.com/spigell/jobscout/internal/headhunter"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/matching"
	"github.com/spigell/jobscout/internal/metrics"
	"github.com/spigell/jobscout/internal/presenter"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/secrets"
	"github.com/spigell/jobscout/internal/store"
	"github.com/spigell/jobscout/internal/tracker"
)

const aiFitFilterName = "ai_fit"

// application holds everything a command needs. Build it with newApplication
// and release it with Close.
type application struct {
	cfg          *Config
	logger       *zap.Logger
	metrics      *metrics.Metrics
	store        store.Store
	collector    *profile.Collector
	orchestrator *discovery.Orchestrator
	presenter    *presenter.Presenter
	tracker      *tracker.Service

	generator *gemini.Generator
	cv        *cv.CachedTrigger
	closers   []func()
}

type appOptions struct {
	// needsDiscovery builds the orchestrator and presenter.
	needsDiscovery bool
	// ignoreApplied keeps postings the user already applied to.
	ignoreApplied bool
}

func newApplication(ctx context.Context, opts appOptions) (*application, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	a := &application{cfg: config, logger: log, metrics: metrics.New()}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.collector = profile.NewCollector(a.store, log)
	a.tracker = tracker.NewService(a.store, log)

	if !opts.needsDiscovery {
		return a, nil
	}

	if err := a.buildDiscovery(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *application) userID() string {
	if id := strings.TrimSpace(a.cfg.UserID); id != "" {
		return id
	}
	return store.DemoUserID
}

// openStore connects to Postgres when configured. An unreachable database
// still yields a store: reads fall back to demo data and writes fail.
func (a *application) openStore(ctx context.Context) error {
	demo := store.NewDemo(a.userID())

	if a.cfg.Database == nil || strings.TrimSpace(a.cfg.Database.URL) == "" {
		a.logger.Info("no database configured, using the in-memory demo store")
		a.store = demo
		return nil
	}

	reachable := true
	pool, err := store.NewPostgresPool(ctx, a.cfg.Database.URL)
	if err != nil {
		reachable = false
		a.logger.Warn("database unavailable, reads will use demo data", zap.Error(err))
		pool, err = pgxpool.New(ctx, a.cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("parsing database url: %w", err)
		}
	}

	pg := store.NewPostgres(pool, a.logger)
	if reachable && a.cfg.Database.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return err
		}
	}

	a.store = store.NewFallback(pg, demo, a.logger)
	a.closers = append(a.closers, a.store.Close)
	return nil
}

// session loads the user's stored preferences, overlaid with answers.
func (a *application) session(ctx context.Context, answers *profile.Answers) (*profile.Session, error) {
	return a.collector.Collect(ctx, a.userID(), answers)
}

// gemini returns the shared generator, creating it on first use.
func (a *application) gemini(ctx context.Context) (*gemini.Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}

	var gc GeminiConfig
	if a.cfg.AI != nil && a.cfg.AI.Gemini != nil {
		gc = *a.cfg.AI.Gemini
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: gc.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithAI(a.logger, "gemini", gc.Model).With(zap.Int("ai_retry_attempts", gc.MaxRetries))
	g, err := gemini.NewGenerator(ctx, apiKey, gc.Model, gc.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}
	a.generator = g
	return g, nil
}

func (a *application) buildDiscovery(ctx context.Context, opts appOptions) error {
	strategies, err := a.strategies(ctx)
	if err != nil {
		return err
	}

	orchestratorOpts := []discovery.Option{
		discovery.WithMetrics(a.metrics),
		discovery.WithLogger(a.logger),
	}
	if d := a.cfg.Discovery; d != nil {
		if d.Timeout > 0 {
			orchestratorOpts = append(orchestratorOpts, discovery.WithTimeout(d.Timeout))
		}
		if d.RatePerMinute > 0 {
			burst := d.Burst
			if burst <= 0 {
				burst = 1
			}
			limit := rate.Every(time.Duration(float64(time.Minute) / d.RatePerMinute))
			orchestratorOpts = append(orchestratorOpts, discovery.WithLimiter(rate.NewLimiter(limit, burst)))
		}
	}
	a.orchestrator = discovery.New(strategies, orchestratorOpts...)

	weights := matching.DefaultWeights()
	if a.cfg.Matching != nil {
		weights = *a.cfg.Matching
	}
	scorer, err := matching.NewScorer(weights)
	if err != nil {
		return fmt.Errorf("matching weights: %w", err)
	}

	filterCfg, matcher, err := a.filtering(ctx)
	if err != nil {
		return err
	}
	aiEnabled := matcher != nil

	a.presenter = presenter.New(a.orchestrator, presenter.Options{
		Scorer: scorer,
		Filters: func() []filtering.Filter {
			steps := []filtering.Filter{
				filtering.NewExcludedCompanies(),
				filtering.NewAppliedHistory(opts.ignoreApplied),
				filtering.NewSeenFile(),
				filtering.NewAIFit(),
			}
			if !aiEnabled {
				filtering.DisableByName(steps, aiFitFilterName, "ai filter is disabled in config")
			}
			return steps
		},
		FilterConfig:   filterCfg,
		History:        a.tracker,
		Matcher:        matcher,
		RelevanceFloor: a.cfg.RelevanceFloor,
		Progress: func(companyID string, ev discovery.Event) {
			a.logger.Info(ev.Message, zap.String(logger.FieldCompany, companyID), zap.String(logger.FieldStrategy, ev.Strategy))
		},
		Logger: a.logger,
	})

	a.logger.Info("discovery ready", zap.Strings("strategies", a.orchestrator.Strategies()))
	return nil
}

func (a *application) strategies(ctx context.Context) ([]discovery.Searcher, error) {
	var out []discovery.Searcher
	for _, name := range a.cfg.Strategies {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "hh":
			token, err := secrets.Optional(secrets.Source{Name: "headhunter token", File: a.cfg.TokenFile})
			if err != nil {
				return nil, err
			}
			client := headhunter.New(a.logger, token)
			if a.cfg.UserAgent != "" {
				client.UserAgent = a.cfg.UserAgent
			}
			var defaults headhunter.SearchParams
			if a.cfg.Search != nil {
				defaults = *a.cfg.Search
			}
			out = append(out, headhunter.NewSearcher(client, defaults))
		case "gemini":
			g, err := a.gemini(ctx)
			if err != nil {
				a.logger.Warn("skipping gemini search strategy", zap.Error(err))
				continue
			}
			out = append(out, gemini.NewSearcher(g, a.logger))
		case "demo":
			out = append(out, discovery.NewDemoSearcher())
		default:
			return nil, fmt.Errorf("unknown search strategy %q", name)
		}
	}
	if len(out) == 0 {
		a.logger.Warn("no search strategy configured, using demo postings")
		out = append(out, discovery.NewDemoSearcher())
	}
	return out, nil
}

// filtering returns the filter config and, when the ai filter is enabled,
// the matcher it uses.
func (a *application) filtering(ctx context.Context) (*filtering.Config, ai.Matcher, error) {
	cfg := &filtering.Config{
		ExcludedCompanies: a.cfg.ExcludedCompanies,
		SeenFile:          a.cfg.SeenFile,
	}

	ac := a.cfg.AI
	if ac == nil || !ac.Enabled {
		return cfg, nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(ac.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", ac.Provider)
	}
	if ac.Gemini == nil {
		return nil, nil, errors.New("gemini configuration is required when ai filter is enabled")
	}

	g, err := a.gemini(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("building ai matcher: %w", err)
	}

	cfg.AI = &filtering.AIConfig{
		Enabled:         true,
		Provider:        "gemini",
		MinimumFitScore: ac.MinimumFitScore,
		Gemini: &filtering.GeminiConfig{
			Model:        g.Model(),
			MaxRetries:   ac.Gemini.MaxRetries,
			MaxLogLength: ac.Gemini.MaxLogLength,
		},
	}

	minScore := ac.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}
	matcher := gemini.NewMatcher(g, minScore, ac.Gemini.MaxLogLength, a.logger)
	if ac.Gemini.Prompt != nil {
		matcher.SetPromptOverrides(*ac.Gemini.Prompt)
	}
	return cfg, matcher, nil
}

// cvGenerator builds the CV pipeline on first use: document service, trigger and cache.
func (a *application) cvGenerator(ctx context.Context) (*cv.CachedTrigger, error) {
	if a.cv != nil {
		return a.cv, nil
	}

	c := a.cfg.CV
	if c == nil {
		c = &CVConfig{Service: "remote"}
	}

	var service cv.DocumentService
	switch strings.ToLower(strings.TrimSpace(c.Service)) {
	case "", "remote":
		if strings.TrimSpace(c.RemoteURL) == "" {
			return nil, errors.New("cv.remote-url is required for the remote document service")
		}
		token, err := secrets.Optional(secrets.Source{Name: "document service token", File: c.TokenFile})
		if err != nil {
			return nil, err
		}
		breaker := cv.DefaultBreakerConfig()
		if c.Breaker != nil {
			breaker = *c.Breaker
		}
		service = cv.NewRemoteService(c.RemoteURL, token, breaker, a.logger)
	case "tailored":
		if c.Artifacts == nil {
			return nil, errors.New("cv.artifacts is required for the tailored document service")
		}
		objects, err := artifacts.NewMinIO(ctx, *c.Artifacts, a.logger)
		if err != nil {
			return nil, err
		}
		g, err := a.gemini(ctx)
		if err != nil {
			return nil, err
		}
		service = cv.NewTailoredService(gemini.NewTailorer(g, a.logger), objects, c.LinkExpiry, a.logger)
	default:
		return nil, fmt.Errorf("unknown cv service %q", c.Service)
	}

	var cache cv.Cache = cv.NewMemoryCache(c.CacheTTL)
	if url := strings.TrimSpace(c.RedisURL); url != "" {
		rdb, err := cv.NewRedisClient(ctx, url)
		if err != nil {
			a.logger.Warn("redis unavailable, caching CVs in memory", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			cache = cv.NewRedisCache(rdb, c.CacheTTL)
		}
	}

	trigger := cv.NewTrigger(service, a.store, a.metrics, a.logger)
	a.cv = cv.NewCachedTrigger(trigger, cache, a.metrics, a.logger)
	return a.cv, nil
}

func (a *application) template(flag string) string {
	if t := strings.TrimSpace(flag); t != "" {
		return t
	}
	if a.cfg.CV != nil && a.cfg.CV.Template != "" {
		return a.cfg.CV.Template
	}
	return "modern"
}
