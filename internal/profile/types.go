// Package profile holds the user's preferences, stored CV assets and the
// session that carries them through a discovery run.
package profile

import (
	"fmt"
	"strings"
)

// JobType is a job-type flag a user can opt into.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeRemote     JobType = "remote"
)

// ParseJobType converts a raw value to a JobType.
func ParseJobType(s string) (JobType, error) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	jt := JobType(normalized)
	switch jt {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeRemote:
		return jt, nil
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// SalaryRange is a salary band. Zero bounds are unset.
type SalaryRange struct {
	Min      float64 `json:"min,omitempty" mapstructure:"min"`
	Max      float64 `json:"max,omitempty" mapstructure:"max"`
	Currency string  `json:"currency,omitempty" mapstructure:"currency"`
}

// IsZero reports whether neither bound is set.
func (s SalaryRange) IsZero() bool {
	return s.Min <= 0 && s.Max <= 0
}

// String renders the band as "min-max CUR".
func (s SalaryRange) String() string {
	if s.IsZero() {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%.0f-%.0f %s", s.Min, s.Max, s.Currency))
}

// Preferences is what the user is looking for.
type Preferences struct {
	Skills            []string    `json:"skills" mapstructure:"skills"`
	Locations         []string    `json:"locations" mapstructure:"locations"`
	Salary            SalaryRange `json:"salary" mapstructure:"salary"`
	Industries        []string    `json:"industries" mapstructure:"industries"`
	ExcludedCompanies []string    `json:"excluded_companies" mapstructure:"excluded-companies"`
	JobTypes          []JobType   `json:"job_types" mapstructure:"job-types"`
}

// Company is read-mostly reference data describing an employer.
type Company struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Size         string `json:"size,omitempty"`
	Website      string `json:"website,omitempty"`
	Headquarters string `json:"headquarters,omitempty"`
	Founded      int    `json:"founded,omitempty"`
}

// Repository is a code repository listed on the profile.
type Repository struct {
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Stars       int      `json:"stars,omitempty"`
}

// Publication is a paper or article listed on the profile.
type Publication struct {
	Title     string `json:"title"`
	Venue     string `json:"venue,omitempty"`
	Year      int    `json:"year,omitempty"`
	URL       string `json:"url,omitempty"`
	Citations int    `json:"citations,omitempty"`
}

// Profile holds the stored assets a CV is generated from.
type Profile struct {
	UserID       string        `json:"user_id"`
	FullName     string        `json:"full_name,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Skills       []string      `json:"skills,omitempty"`
	Repositories []Repository  `json:"repositories,omitempty"`
	Publications []Publication `json:"publications,omitempty"`
}

// HasAssets reports whether the profile has enough content to build a CV from.
func (p *Profile) HasAssets() bool {
	if p == nil {
		return false
	}
	if strings.TrimSpace(p.Summary) != "" {
		return true
	}
	for _, s := range p.Skills {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Session is passed explicitly to every workflow component.
type Session struct {
	UserID      string
	Preferences Preferences
	Profile     *Profile
}

// NewSession builds a session for userID.
func NewSession(userID string, prefs Preferences, p *Profile) *Session {
	return &Session{UserID: strings.TrimSpace(userID), Preferences: prefs, Profile: p}
}
