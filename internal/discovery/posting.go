package discovery

import (
	"fmt"
	"strings"

	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/utils"
)

// Provenance tells where a posting came from.
type Provenance string

const (
	ProvenanceScraped     Provenance = "scraped"
	ProvenanceAIGenerated Provenance = "ai_generated"
	ProvenanceDemo        Provenance = "demo"
)

// Posting is a discovered job opening. It has no identity beyond Key.
type Posting struct {
	Key          string               `json:"key"`
	CompanyID    string               `json:"company_id"`
	CompanyName  string               `json:"company_name"`
	Industry     string               `json:"industry,omitempty"`
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Requirements []string             `json:"requirements,omitempty"`
	Location     string               `json:"location,omitempty"`
	JobType      string               `json:"job_type,omitempty"`
	URL          string               `json:"url,omitempty"`
	Salary       *profile.SalaryRange `json:"salary,omitempty"`
	Score        float64              `json:"score"`
	SkillMatches int                  `json:"skill_matches"`
	Provenance   Provenance           `json:"provenance"`
	Assessment   *Assessment          `json:"assessment,omitempty"`
}

// Assessment is an optional AI review attached by the ai_fit filter.
type Assessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Percent returns the match score as an integer percentage in [0,100].
func (p *Posting) Percent() int {
	switch {
	case p.Score <= 0:
		return 0
	case p.Score >= 1:
		return 100
	}
	return int(p.Score*100 + 0.5)
}

// Key synthesizes the posting key from the company id, title and index.
func Key(companyID, title string, index int) string {
	slug := utils.Slug(title)
	if slug == "" {
		slug = "posting"
	}
	return fmt.Sprintf("%s-%s-%d", strings.TrimSpace(companyID), slug, index)
}

// Identity identifies a posting across runs of the same company.
func (p *Posting) Identity() string {
	return strings.TrimSpace(p.CompanyID) + "|" + p.dedupKey()
}

// dedupKey identifies a posting within one run.
func (p *Posting) dedupKey() string {
	if u := strings.TrimSpace(p.URL); u != "" {
		return "url:" + strings.TrimSuffix(strings.ToLower(u), "/")
	}
	return "title:" + utils.Fold(p.Title) + "|" + utils.Fold(p.Location)
}

// normalize fills company data, drops blank and duplicate postings and assigns keys.
func normalize(company profile.Company, postings []Posting) []Posting {
	out := make([]Posting, 0, len(postings))
	seen := make(map[string]struct{}, len(postings))

	for _, p := range postings {
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			continue
		}

		key := p.dedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		p.CompanyID = company.ID
		if p.CompanyName == "" {
			p.CompanyName = company.Name
		}
		if p.Industry == "" {
			p.Industry = company.Industry
		}
		p.Requirements = utils.UniqueFold(p.Requirements)
		p.Location = strings.TrimSpace(p.Location)
		if p.Salary != nil && p.Salary.IsZero() {
			p.Salary = nil
		}
		p.Score = 0
		p.SkillMatches = 0
		p.Key = Key(company.ID, p.Title, len(out))

		out = append(out, p)
	}

	return out
}
