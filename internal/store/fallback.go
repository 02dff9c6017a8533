package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/tracker"
)

// Fallback serves reads from a demo dataset when the primary store fails.
// Writes always go to the primary and its errors are returned as is.
type Fallback struct {
	primary Store
	demo    *Memory
	logger  *zap.Logger
}

var _ Store = (*Fallback)(nil)

func NewFallback(primary Store, demo *Memory, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, demo: demo, logger: logger}
}

func (f *Fallback) Close() { f.primary.Close() }

// degraded reports whether err should be answered from the demo dataset.
func (f *Fallback) degraded(op string, err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, tracker.ErrNotFound) {
		return false
	}
	f.logger.Warn("backend read failed, serving demo data", zap.String("op", op), zap.Error(err))
	return true
}

func (f *Fallback) ListCompanies(ctx context.Context) ([]profile.Company, error) {
	out, err := f.primary.ListCompanies(ctx)
	if f.degraded("list companies", err) {
		return f.demo.ListCompanies(ctx)
	}
	return out, err
}

func (f *Fallback) GetCompany(ctx context.Context, id string) (*profile.Company, error) {
	out, err := f.primary.GetCompany(ctx, id)
	if f.degraded("get company", err) {
		return f.demo.GetCompany(ctx, id)
	}
	return out, err
}

func (f *Fallback) SaveCompany(ctx context.Context, c profile.Company) error {
	return f.primary.SaveCompany(ctx, c)
}

func (f *Fallback) GetPreferences(ctx context.Context, userID string) (profile.Preferences, error) {
	out, err := f.primary.GetPreferences(ctx, userID)
	if f.degraded("get preferences", err) {
		return f.demo.GetPreferences(ctx, userID)
	}
	return out, err
}

func (f *Fallback) SavePreferences(ctx context.Context, userID string, prefs profile.Preferences) error {
	return f.primary.SavePreferences(ctx, userID, prefs)
}

func (f *Fallback) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	out, err := f.primary.GetProfile(ctx, userID)
	if f.degraded("get profile", err) {
		return f.demo.GetProfile(ctx, userID)
	}
	return out, err
}

func (f *Fallback) SaveProfile(ctx context.Context, p *profile.Profile) error {
	return f.primary.SaveProfile(ctx, p)
}

func (f *Fallback) SaveGeneration(ctx context.Context, g *cv.Generation) error {
	return f.primary.SaveGeneration(ctx, g)
}

func (f *Fallback) ListGenerations(ctx context.Context, userID string) ([]cv.Generation, error) {
	out, err := f.primary.ListGenerations(ctx, userID)
	if f.degraded("list generations", err) {
		return f.demo.ListGenerations(ctx, userID)
	}
	return out, err
}

func (f *Fallback) CreateApplication(ctx context.Context, a *tracker.Application) error {
	return f.primary.CreateApplication(ctx, a)
}

func (f *Fallback) UpdateApplication(ctx context.Context, a *tracker.Application) error {
	return f.primary.UpdateApplication(ctx, a)
}

// GetApplication is not served from demo data: it only precedes an update.
func (f *Fallback) GetApplication(ctx context.Context, userID, id string) (*tracker.Application, error) {
	return f.primary.GetApplication(ctx, userID, id)
}

func (f *Fallback) ListApplications(ctx context.Context, userID string) ([]tracker.Application, error) {
	out, err := f.primary.ListApplications(ctx, userID)
	if f.degraded("list applications", err) {
		return f.demo.ListApplications(ctx, userID)
	}
	return out, err
}
