package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/tracker"
)

// Memory is a process local Store. Values are copied in and out.
type Memory struct {
	mu           sync.RWMutex
	companies    map[string]profile.Company
	preferences  map[string]profile.Preferences
	profiles     map[string]profile.Profile
	generations  map[string]cv.Generation
	applications map[string]tracker.Application
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		companies:    make(map[string]profile.Company),
		preferences:  make(map[string]profile.Preferences),
		profiles:     make(map[string]profile.Profile),
		generations:  make(map[string]cv.Generation),
		applications: make(map[string]tracker.Application),
	}
}

func (m *Memory) Close() {}

func (m *Memory) ListCompanies(_ context.Context) ([]profile.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]profile.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *Memory) GetCompany(_ context.Context, id string) (*profile.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) SaveCompany(_ context.Context, c profile.Company) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return errors.New("company id and name are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
	return nil
}

// GetPreferences returns zero preferences for users that never saved any.
func (m *Memory) GetPreferences(_ context.Context, userID string) (profile.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clonePreferences(m.preferences[userID]), nil
}

func (m *Memory) SavePreferences(_ context.Context, userID string, prefs profile.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[userID] = clonePreferences(prefs)
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(&p), nil
}

func (m *Memory) SaveProfile(_ context.Context, p *profile.Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return errors.New("profile with user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = *cloneProfile(p)
	return nil
}

// SaveGeneration refuses to overwrite an existing generation.
func (m *Memory) SaveGeneration(_ context.Context, g *cv.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.generations[g.ID]; ok {
		return errors.New("generation " + g.ID + " already exists")
	}
	m.generations[g.ID] = *g
	return nil
}

func (m *Memory) ListGenerations(_ context.Context, userID string) ([]cv.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]cv.Generation, 0)
	for _, g := range m.generations {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateApplication(_ context.Context, a *tracker.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[a.ID]; ok {
		return errors.New("application " + a.ID + " already exists")
	}
	m.applications[a.ID] = cloneApplication(*a)
	return nil
}

func (m *Memory) UpdateApplication(_ context.Context, a *tracker.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.applications[a.ID]
	if !ok || existing.UserID != a.UserID {
		return tracker.ErrNotFound
	}
	m.applications[a.ID] = cloneApplication(*a)
	return nil
}

func (m *Memory) GetApplication(_ context.Context, userID, id string) (*tracker.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.applications[id]
	if !ok || a.UserID != userID {
		return nil, tracker.ErrNotFound
	}
	out := cloneApplication(a)
	return &out, nil
}

func (m *Memory) ListApplications(_ context.Context, userID string) ([]tracker.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]tracker.Application, 0)
	for _, a := range m.applications {
		if a.UserID == userID {
			out = append(out, cloneApplication(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func clonePreferences(p profile.Preferences) profile.Preferences {
	p.Skills = append([]string(nil), p.Skills...)
	p.Locations = append([]string(nil), p.Locations...)
	p.Industries = append([]string(nil), p.Industries...)
	p.ExcludedCompanies = append([]string(nil), p.ExcludedCompanies...)
	p.JobTypes = append([]profile.JobType(nil), p.JobTypes...)
	return p
}

func cloneProfile(p *profile.Profile) *profile.Profile {
	out := *p
	out.Skills = append([]string(nil), p.Skills...)
	out.Repositories = append([]profile.Repository(nil), p.Repositories...)
	out.Publications = append([]profile.Publication(nil), p.Publications...)
	return &out
}

func cloneApplication(a tracker.Application) tracker.Application {
	a.History = append([]tracker.Transition(nil), a.History...)
	return a
}
