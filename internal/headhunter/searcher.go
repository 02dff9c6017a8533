package headhunter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/profile"
)

// Searcher adapts the client to the discovery strategy chain.
type Searcher struct {
	client *Client
	// Defaults are merged into every search, e.g. areas or experience.
	Defaults SearchParams
}

func NewSearcher(client *Client, defaults SearchParams) *Searcher {
	return &Searcher{client: client, Defaults: defaults}
}

func (s *Searcher) Name() string { return "hh" }

func (s *Searcher) Search(ctx context.Context, q discovery.Query, report discovery.Reporter) ([]discovery.Posting, error) {
	log := logger.WithFields(s.client.logger,
		zap.String(logger.FieldStrategy, s.Name()),
		zap.String(logger.FieldCompany, q.Company.ID),
	)

	report(fmt.Sprintf("looking up %s on hh.ru", q.Company.Name))
	employer, err := s.client.FindEmployer(ctx, q.Company.Name)
	if err != nil {
		return nil, fmt.Errorf("employer lookup: %w", err)
	}
	if employer == nil {
		report(fmt.Sprintf("hh.ru has no employer named %s", q.Company.Name))
		return nil, nil
	}
	log.Debug("employer resolved", zap.String("employer_id", employer.ID), zap.String("employer", employer.Name))

	params := s.params(employer.ID, q.Preferences)
	report(fmt.Sprintf("searching vacancies of %s", employer.Name))

	vacancies, err := s.client.Search(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("vacancy search: %w", err)
	}

	postings := make([]discovery.Posting, 0, vacancies.Len())
	for _, v := range vacancies.Items {
		if v == nil || v.Archived {
			continue
		}
		postings = append(postings, v.ToPosting())
	}

	log.Info("hh.ru search finished", zap.Int("vacancies", vacancies.Len()), zap.Int("postings", len(postings)))
	return postings, nil
}

// params builds the search for one employer. Skills are OR-ed into the text
// query so a posting needs to mention at least one of them.
func (s *Searcher) params(employerID string, prefs profile.Preferences) SearchParams {
	params := s.Defaults
	params.Employer = employerID

	if params.Text == "" && len(prefs.Skills) > 0 {
		quoted := make([]string, 0, len(prefs.Skills))
		for _, skill := range prefs.Skills {
			if skill = strings.TrimSpace(skill); skill != "" {
				quoted = append(quoted, fmt.Sprintf("%q", skill))
			}
		}
		params.Text = strings.Join(quoted, " OR ")
	}

	if len(params.Schedules) == 0 {
		for _, jt := range prefs.JobTypes {
			if jt == profile.JobTypeRemote {
				params.Schedules = append(params.Schedules, "remote")
			}
		}
	}

	return params
}
