package headhunter

import (
	"reflect"
	"testing"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

func TestVacancyToPosting(t *testing.T) {
	v := &Vacancy{
		ID:           "1",
		Name:         " Go Developer ",
		AlternateURL: "https://hh.ru/vacancy/1",
	}
	v.Area.Name = "Moscow"
	v.Employment.ID = "full"
	v.Employer.Name = "Acme LLC"
	v.KeySkills = []struct {
		Name string `json:"name,omitempty"`
	}{{Name: "Go"}, {Name: " "}, {Name: "PostgreSQL"}}
	v.Snipet.Requirement = "Strong <highlighttext>Go</highlighttext> skills"
	v.Snipet.Responsibility = "Build services"
	v.Salary = &struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	}{From: 200000, Currency: "RUR"}

	p := v.ToPosting()

	if p.Title != "Go Developer" || p.Location != "Moscow" || p.URL != "https://hh.ru/vacancy/1" {
		t.Fatalf("unexpected posting basics: %+v", p)
	}
	if p.Provenance != discovery.ProvenanceScraped {
		t.Fatalf("expected scraped provenance, got %q", p.Provenance)
	}
	if p.JobType != string(profile.JobTypeFullTime) {
		t.Fatalf("unexpected job type %q", p.JobType)
	}
	if !reflect.DeepEqual(p.Requirements, []string{"Go", "PostgreSQL"}) {
		t.Fatalf("unexpected requirements %v", p.Requirements)
	}
	if p.Description != "Strong Go skills Build services" {
		t.Fatalf("unexpected description %q", p.Description)
	}
	if p.Salary == nil || p.Salary.Min != 200000 || p.Salary.Max != 0 || p.Salary.Currency != "RUR" {
		t.Fatalf("unexpected salary %+v", p.Salary)
	}
}

func TestVacancyJobType(t *testing.T) {
	tests := []struct {
		schedule, employment string
		want                 string
	}{
		{schedule: "remote", employment: "full", want: "remote"},
		{employment: "part", want: "part_time"},
		{employment: "project", want: "contract"},
		{employment: "probation", want: "internship"},
		{employment: "volunteer", want: ""},
	}

	for _, tt := range tests {
		v := &Vacancy{}
		v.Schedule.ID = tt.schedule
		v.Employment.ID = tt.employment
		if got := v.jobType(); got != tt.want {
			t.Fatalf("jobType(%q, %q) = %q, want %q", tt.schedule, tt.employment, got, tt.want)
		}
	}
}

func TestBuildParams(t *testing.T) {
	q := buildParams(&SearchParams{
		Text:      "golang",
		Areas:     []int{1, 2},
		Employer:  "42",
		Schedules: []string{"remote"},
		PerPage:   "100",
	})

	if got := q["area"]; !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("unexpected areas %v", got)
	}
	if q.Get("employer_id") != "42" || q.Get("text") != "golang" || q.Get("schedule") != "remote" {
		t.Fatalf("unexpected params %v", q)
	}
	if _, ok := q["period"]; ok {
		t.Fatalf("zero values must be omitted: %v", q)
	}
}

func TestPickEmployer(t *testing.T) {
	employers := []*Employer{
		{ID: "1", Name: "Acme Holding", OpenVacances: 10},
		{ID: "2", Name: "acme", OpenVacances: 1},
	}
	if got := pickEmployer(employers, "Acme"); got.ID != "2" {
		t.Fatalf("expected exact name match, got %+v", got)
	}
	if got := pickEmployer(employers[:1], "Acme"); got.ID != "1" {
		t.Fatalf("expected fallback to first candidate, got %+v", got)
	}
	if got := pickEmployer(nil, "Acme"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
