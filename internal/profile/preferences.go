package profile

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/spigell/jobscout/internal/utils"
)

// ErrInvalidPreferences is returned when preferences fail validation.
var ErrInvalidPreferences = errors.New("invalid preferences")

// ValidationError lists the offending fields.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPreferences, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPreferences }

// Normalize trims values and removes duplicates while keeping order.
func (p Preferences) Normalize() Preferences {
	out := Preferences{
		Skills:            utils.UniqueFold(p.Skills),
		Locations:         utils.UniqueFold(p.Locations),
		Industries:        utils.UniqueFold(p.Industries),
		ExcludedCompanies: utils.UniqueFold(p.ExcludedCompanies),
		Salary: SalaryRange{
			Min:      p.Salary.Min,
			Max:      p.Salary.Max,
			Currency: strings.ToUpper(strings.TrimSpace(p.Salary.Currency)),
		},
	}

	for _, jt := range p.JobTypes {
		parsed, err := ParseJobType(string(jt))
		if err != nil || slices.Contains(out.JobTypes, parsed) {
			continue
		}
		out.JobTypes = append(out.JobTypes, parsed)
	}

	return out
}

// Validate checks the fields required before a discovery run is allowed.
func (p Preferences) Validate() error {
	var problems []string

	if len(utils.UniqueFold(p.Skills)) == 0 && len(utils.UniqueFold(p.Locations)) == 0 {
		problems = append(problems, "at least one skill or location is required")
	}
	if !finite(p.Salary.Min) || !finite(p.Salary.Max) {
		problems = append(problems, "salary bounds must be finite numbers")
	} else if p.Salary.Min < 0 || p.Salary.Max < 0 {
		problems = append(problems, "salary bounds must not be negative")
	}
	if p.Salary.Min > 0 && p.Salary.Max > 0 && p.Salary.Min > p.Salary.Max {
		problems = append(problems, fmt.Sprintf("salary min %.0f is greater than max %.0f", p.Salary.Min, p.Salary.Max))
	}
	for _, jt := range p.JobTypes {
		if _, err := ParseJobType(string(jt)); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Excludes reports whether companyID is on the excluded list.
func (p Preferences) Excludes(companyID string) bool {
	key := utils.Fold(companyID)
	for _, id := range p.ExcludedCompanies {
		if utils.Fold(id) == key {
			return true
		}
	}
	return false
}

// Summary renders a compact single-line description used in prompts and logs.
func (p Preferences) Summary() string {
	parts := make([]string, 0, 5)
	if len(p.Skills) > 0 {
		parts = append(parts, "skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.Locations) > 0 {
		parts = append(parts, "locations: "+strings.Join(p.Locations, ", "))
	}
	if s := p.Salary.String(); s != "" {
		parts = append(parts, "salary: "+s)
	}
	if len(p.JobTypes) > 0 {
		types := make([]string, 0, len(p.JobTypes))
		for _, jt := range p.JobTypes {
			types = append(types, string(jt))
		}
		parts = append(parts, "job types: "+strings.Join(types, ", "))
	}
	if len(p.Industries) > 0 {
		parts = append(parts, "industries: "+strings.Join(p.Industries, ", "))
	}
	return strings.Join(parts, "; ")
}
