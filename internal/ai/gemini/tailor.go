package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/profile"
)

const tailorSystemPrompt = `You write concise CVs in markdown. You only use facts
from the candidate profile you are given and never invent experience.`

// Tailorer writes a CV for one posting.
type Tailorer struct {
	generator contentGenerator
	logger    *zap.Logger
}

func NewTailorer(generator contentGenerator, log *zap.Logger) *Tailorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tailorer{generator: generator, logger: logger.WithAI(log, "gemini", generator.Model())}
}

type tailorResponse struct {
	Markdown  string  `json:"markdown"`
	Projects  int     `json:"projects_highlighted"`
	Skills    int     `json:"skills_highlighted"`
	Relevance float64 `json:"relevance"`
}

func (t *Tailorer) Tailor(ctx context.Context, candidate *profile.Profile, posting *discovery.Posting, templateID string) (*ai.TailoredCV, error) {
	if candidate == nil || posting == nil {
		return nil, errors.New("profile and posting are required")
	}

	candidateJSON, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	postingJSON, err := json.Marshal(posting)
	if err != nil {
		return nil, fmt.Errorf("marshal posting: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a CV using the %q template style for the posting below.\n", templateID)
	b.WriteString(`Reply with JSON only: {"markdown": string, "projects_highlighted": int, "skills_highlighted": int, "relevance": 0.0-1.0}` + "\n\n")
	fmt.Fprintf(&b, "[Inputs: candidate]\n%s\n\n[Inputs: posting]\n%s\n", candidateJSON, postingJSON)

	raw, err := t.generator.GenerateContent(ctx, tailorSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var resp tailorResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parse tailored cv: %w", err)
	}
	if strings.TrimSpace(resp.Markdown) == "" {
		return nil, errors.New("gemini returned an empty cv")
	}

	t.logger.Debug("cv tailored",
		zap.String("posting_key", posting.Key),
		zap.String("template", templateID),
		zap.Int("projects", resp.Projects),
		zap.Int("skills", resp.Skills),
	)

	relevance := resp.Relevance
	if relevance < 0 {
		relevance = 0
	} else if relevance > 1 {
		relevance = 1
	}

	return &ai.TailoredCV{
		Markdown:  resp.Markdown,
		Projects:  resp.Projects,
		Skills:    resp.Skills,
		Relevance: relevance,
	}, nil
}
