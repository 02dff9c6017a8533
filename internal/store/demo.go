package store

import (
	"github.com/spigell/jobscout/internal/profile"
)

// DemoUserID owns the demo preferences and profile.
const DemoUserID = "demo"

// DemoCompanies is the fixed company set served when the backend is unreachable.
func DemoCompanies() []profile.Company {
	return []profile.Company{
		{
			ID:           "acme",
			Name:         "Acme",
			Description:  "Developer tooling for small product teams.",
			Industry:     "Software",
			Size:         "51-200",
			Website:      "https://acme.example",
			Headquarters: "Berlin",
			Founded:      2015,
		},
		{
			ID:           "globex",
			Name:         "Globex",
			Description:  "Payments infrastructure for marketplaces.",
			Industry:     "Fintech",
			Size:         "201-500",
			Website:      "https://globex.example",
			Headquarters: "Amsterdam",
			Founded:      2011,
		},
		{
			ID:           "initech",
			Name:         "Initech",
			Description:  "Logistics planning software.",
			Industry:     "Logistics",
			Size:         "1000+",
			Website:      "https://initech.example",
			Headquarters: "Remote",
			Founded:      1999,
		},
	}
}

func demoPreferences() profile.Preferences {
	return profile.Preferences{
		Skills:     []string{"Go", "Kubernetes", "PostgreSQL"},
		Locations:  []string{"Berlin", "Remote"},
		Salary:     profile.SalaryRange{Min: 70000, Max: 110000, Currency: "EUR"},
		Industries: []string{"Software"},
		JobTypes:   []profile.JobType{profile.JobTypeFullTime, profile.JobTypeRemote},
	}
}

func demoProfile() *profile.Profile {
	return &profile.Profile{
		UserID:   DemoUserID,
		FullName: "Demo User",
		Summary:  "Backend engineer building distributed systems in Go.",
		Skills:   []string{"Go", "Kubernetes", "PostgreSQL", "gRPC"},
		Repositories: []profile.Repository{
			{Name: "queue-bench", URL: "https://git.example/demo/queue-bench", Description: "Message queue benchmarks", Languages: []string{"Go"}, Stars: 42},
		},
	}
}

// NewDemo returns a Memory seeded with the demo dataset. Preferences and
// profile are stored under userID.
func NewDemo(userID string) *Memory {
	m := NewMemory()
	for _, c := range DemoCompanies() {
		m.companies[c.ID] = c
	}
	if userID == "" {
		userID = DemoUserID
	}
	m.preferences[userID] = demoPreferences()
	p := demoProfile()
	p.UserID = userID
	m.profiles[userID] = *p
	return m
}
