package discovery

import (
	"context"
	"fmt"

	"github.com/spigell/jobscout/internal/profile"
)

// DemoSearcher returns a fixed set of postings for any company.
type DemoSearcher struct{}

func NewDemoSearcher() *DemoSearcher { return &DemoSearcher{} }

func (d *DemoSearcher) Name() string { return "demo" }

func (d *DemoSearcher) Search(ctx context.Context, q Query, report Reporter) ([]Posting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(fmt.Sprintf("loading demo postings for %s", q.Company.Name))

	location := "Remote"
	if q.Company.Headquarters != "" {
		location = q.Company.Headquarters
	}

	postings := []Posting{
		{
			Title:        "Senior Software Engineer",
			Description:  fmt.Sprintf("Build and operate the core platform at %s.", q.Company.Name),
			Requirements: []string{"Go", "Kubernetes", "PostgreSQL"},
			Location:     location,
			JobType:      string(profile.JobTypeFullTime),
			Salary:       &profile.SalaryRange{Min: 90000, Max: 120000, Currency: "EUR"},
		},
		{
			Title:        "Frontend Developer",
			Description:  "Own the customer facing web application.",
			Requirements: []string{"React", "TypeScript", "CSS"},
			Location:     "Remote",
			JobType:      string(profile.JobTypeRemote),
			Salary:       &profile.SalaryRange{Min: 70000, Max: 95000, Currency: "EUR"},
		},
		{
			Title:        "Data Engineer",
			Description:  "Design batch and streaming pipelines.",
			Requirements: []string{"Python", "SQL", "Airflow"},
			Location:     location,
			JobType:      string(profile.JobTypeContract),
		},
	}

	for i := range postings {
		postings[i].Provenance = ProvenanceDemo
		if q.Company.Website != "" {
			postings[i].URL = fmt.Sprintf("%s/careers/%d", q.Company.Website, i+1)
		}
	}

	return postings, nil
}
