package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
)

type excludedCompaniesFilter struct {
	companies []string
}

// NewExcludedCompanies drops postings of companies excluded in the config or
// in the session preferences.
func NewExcludedCompanies() Filter {
	return &excludedCompaniesFilter{}
}

func (f *excludedCompaniesFilter) Name() string { return "excluded_companies" }

func (f *excludedCompaniesFilter) Disable(string) {}

func (f *excludedCompaniesFilter) IsEnabled() bool { return true }

func (f *excludedCompaniesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		f.companies = append(f.companies, cfg.ExcludedCompanies...)
	}
	return nil
}

func (f *excludedCompaniesFilter) Apply(_ context.Context, deps Deps, postings []discovery.Posting) ([]discovery.Posting, Step, error) {
	initial := len(postings)

	excluded := make(map[string]struct{}, len(f.companies))
	for _, id := range f.companies {
		excluded[strings.TrimSpace(id)] = struct{}{}
	}

	left, dropped := keep(postings, func(p *discovery.Posting) bool {
		if _, ok := excluded[p.CompanyID]; ok {
			return true
		}
		return deps.Session != nil && deps.Session.Preferences.Excludes(p.CompanyID)
	})

	if len(dropped) > 0 {
		deps.Logger.Info("excluding postings by company",
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(left)),
		)
	}

	return left, Step{Initial: initial, Dropped: len(dropped), Left: len(left)}, nil
}

func (f *excludedCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
