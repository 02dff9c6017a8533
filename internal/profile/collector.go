package profile

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/utils"
)

// Source reads stored preferences and CV assets for a user.
type Source interface {
	GetPreferences(ctx context.Context, userID string) (Preferences, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Sink persists preferences.
type Sink interface {
	SavePreferences(ctx context.Context, userID string, prefs Preferences) error
}

// Answers are raw values typed into the preference form. Empty values keep
// the stored preference.
type Answers struct {
	Skills     string
	Locations  string
	SalaryMin  string
	SalaryMax  string
	Currency   string
	JobTypes   string
	Industries string
}

// Collector merges stored preferences with form answers.
type Collector struct {
	source Source
	logger *zap.Logger
}

func NewCollector(source Source, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{source: source, logger: logger}
}

// Collect builds a validated session for userID.
func (c *Collector) Collect(ctx context.Context, userID string, answers *Answers) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &ValidationError{Problems: []string{"user id is required"}}
	}

	stored, err := c.source.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	merged, err := Merge(stored, answers)
	if err != nil {
		return nil, err
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}

	p, err := c.source.GetProfile(ctx, userID)
	if err != nil {
		// A missing profile only matters for CV generation, which reports it itself.
		c.logger.Warn("loading profile failed", zap.String("user_id", userID), zap.Error(err))
		p = &Profile{UserID: userID}
	}

	c.logger.Debug("collected preferences",
		zap.String("user_id", userID),
		zap.String("preferences", merged.Summary()),
	)

	return NewSession(userID, merged, p), nil
}

// Save normalizes and validates prefs before writing them to sink.
func Save(ctx context.Context, sink Sink, userID string, prefs Preferences) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return &ValidationError{Problems: []string{"user id is required"}}
	}
	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return err
	}
	if err := sink.SavePreferences(ctx, userID, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Merge overlays non-empty answers on stored preferences and normalizes the result.
func Merge(stored Preferences, answers *Answers) (Preferences, error) {
	merged := stored
	if answers == nil {
		return merged.Normalize(), nil
	}

	var problems []string

	if v := strings.TrimSpace(answers.Skills); v != "" {
		merged.Skills = utils.SplitList(v)
	}
	if v := strings.TrimSpace(answers.Locations); v != "" {
		merged.Locations = utils.SplitList(v)
	}
	if v := strings.TrimSpace(answers.Industries); v != "" {
		merged.Industries = utils.SplitList(v)
	}
	if v := strings.TrimSpace(answers.Currency); v != "" {
		merged.Salary.Currency = v
	}
	if v := strings.TrimSpace(answers.SalaryMin); v != "" {
		f, err := parseAmount(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("salary min: %v", err))
		}
		merged.Salary.Min = f
	}
	if v := strings.TrimSpace(answers.SalaryMax); v != "" {
		f, err := parseAmount(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("salary max: %v", err))
		}
		merged.Salary.Max = f
	}
	if v := strings.TrimSpace(answers.JobTypes); v != "" {
		merged.JobTypes = nil
		for _, raw := range utils.SplitList(v) {
			jt, err := ParseJobType(raw)
			if err != nil {
				problems = append(problems, err.Error())
				continue
			}
			merged.JobTypes = append(merged.JobTypes, jt)
		}
	}

	if len(problems) > 0 {
		return Preferences{}, &ValidationError{Problems: problems}
	}

	return merged.Normalize(), nil
}

// parseAmount accepts plain numbers plus "k" suffixes and thousands separators.
func parseAmount(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	multiplier := 1.0
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSuffix(s, "k")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f * multiplier, nil
}
