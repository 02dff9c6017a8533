package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/utils"
)

const searchSystemPrompt = `You research open job positions on the public web.
Only report positions you found on a page you can cite. Never invent postings.`

// Searcher is an agent strategy: one grounded conversation locates the
// company's careers pages and then extracts the open positions.
type Searcher struct {
	generator *Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewSearcher(generator *Generator, log *zap.Logger) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{
		generator: generator,
		logger:    logger.WithAI(log, "gemini", generator.Model()),
		maxLogLen: defaultMaxLogLength,
	}
}

func (s *Searcher) Name() string { return "gemini" }

// extractedPosting is the JSON shape asked from the model.
type extractedPosting struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Location     string   `json:"location"`
	JobType      string   `json:"job_type"`
	URL          string   `json:"url"`
	Salary       *struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"salary"`
}

func (s *Searcher) Search(ctx context.Context, q discovery.Query, report discovery.Reporter) ([]discovery.Posting, error) {
	conv, err := s.generator.StartConversation(ctx, searchSystemPrompt, true)
	if err != nil {
		return nil, err
	}

	report(fmt.Sprintf("locating careers pages of %s", q.Company.Name))
	pages, err := conv.Send(ctx, locatePrompt(q.Company))
	if err != nil {
		return nil, fmt.Errorf("locating careers pages: %w", err)
	}
	s.logger.Debug("careers pages located",
		zap.String(logger.FieldCompany, q.Company.ID),
		zap.String("response_preview", utils.TruncateForLog(pages, s.maxLogLen)),
	)

	report("extracting postings from careers pages")
	raw, err := conv.Send(ctx, extractPrompt(q.Preferences))
	if err != nil {
		return nil, fmt.Errorf("extracting postings: %w", err)
	}

	postings, err := parsePostings(raw)
	if err != nil {
		s.logger.Debug("unparseable postings response",
			zap.String(logger.FieldCompany, q.Company.ID),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
		)
		return nil, err
	}

	return postings, nil
}

func locatePrompt(c profile.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find the official careers or jobs pages of the company %q.", c.Name)
	if c.Website != "" {
		fmt.Fprintf(&b, " Its website is %s.", c.Website)
	}
	if c.Headquarters != "" {
		fmt.Fprintf(&b, " It is headquartered in %s.", c.Headquarters)
	}
	b.WriteString(" List the URLs you found, one per line.")
	return b.String()
}

func extractPrompt(prefs profile.Preferences) string {
	var b strings.Builder
	b.WriteString("From those pages, list the currently open positions as a JSON array. ")
	b.WriteString(`Each item: {"title": string, "description": string, "requirements": [string], `)
	b.WriteString(`"location": string, "job_type": "full_time"|"part_time"|"contract"|"internship"|"remote"|"", `)
	b.WriteString(`"url": string, "salary": {"min": number, "max": number, "currency": string} or null}. `)
	if len(prefs.Skills) > 0 {
		fmt.Fprintf(&b, "Prefer positions related to: %s. ", strings.Join(prefs.Skills, ", "))
	}
	b.WriteString("Reply with [] when there are none. Reply with JSON only.")
	return b.String()
}

func parsePostings(raw string) ([]discovery.Posting, error) {
	var extracted []extractedPosting
	if err := json.Unmarshal([]byte(extractJSON(raw)), &extracted); err != nil {
		return nil, fmt.Errorf("parse gemini postings: %w", err)
	}

	postings := make([]discovery.Posting, 0, len(extracted))
	for _, e := range extracted {
		p := discovery.Posting{
			Title:        e.Title,
			Description:  e.Description,
			Requirements: e.Requirements,
			Location:     e.Location,
			URL:          e.URL,
			Provenance:   discovery.ProvenanceAIGenerated,
		}
		if jt, err := profile.ParseJobType(e.JobType); err == nil {
			p.JobType = string(jt)
		}
		if e.Salary != nil {
			p.Salary = &profile.SalaryRange{Min: e.Salary.Min, Max: e.Salary.Max, Currency: e.Salary.Currency}
		}
		postings = append(postings, p)
	}
	return postings, nil
}
