package headhunter

import (
	"regexp"
	"strings"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Salary *struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	} `json:"salary,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employment struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employment,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Description  string `json:"description,omitempty"`
	KeySkills    []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Archived bool `json:"archived,omitempty"`
	Snipet   struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

var markup = regexp.MustCompile(`<[^>]+>`)

func stripMarkup(s string) string {
	return strings.Join(strings.Fields(markup.ReplaceAllString(s, " ")), " ")
}

// jobType maps hh.ru schedule and employment ids to a job type. A remote
// schedule wins over the employment kind.
func (va *Vacancy) jobType() string {
	if va.Schedule.ID == "remote" {
		return string(profile.JobTypeRemote)
	}
	switch va.Employment.ID {
	case "full":
		return string(profile.JobTypeFullTime)
	case "part":
		return string(profile.JobTypePartTime)
	case "project":
		return string(profile.JobTypeContract)
	case "probation":
		return string(profile.JobTypeInternship)
	}
	return ""
}

// ToPosting maps the vacancy to a discovery posting.
func (va *Vacancy) ToPosting() discovery.Posting {
	p := discovery.Posting{
		Title:      strings.TrimSpace(va.Name),
		Location:   va.Area.Name,
		JobType:    va.jobType(),
		URL:        va.AlternateURL,
		Provenance: discovery.ProvenanceScraped,
	}
	if va.Employer.Name != "" {
		p.CompanyName = va.Employer.Name
	}

	for _, s := range va.KeySkills {
		if name := strings.TrimSpace(s.Name); name != "" {
			p.Requirements = append(p.Requirements, name)
		}
	}

	if va.Description != "" {
		p.Description = stripMarkup(va.Description)
	} else {
		parts := make([]string, 0, 2)
		for _, s := range []string{va.Snipet.Requirement, va.Snipet.Responsibility} {
			if s = stripMarkup(s); s != "" {
				parts = append(parts, s)
			}
		}
		p.Description = strings.Join(parts, " ")
	}

	if va.Salary != nil && (va.Salary.From > 0 || va.Salary.To > 0) {
		p.Salary = &profile.SalaryRange{
			Min:      float64(va.Salary.From),
			Max:      float64(va.Salary.To),
			Currency: va.Salary.Currency,
		}
	}

	return p
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
