package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/ai"
	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/logger"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

// PromptOverrides are user supplied additions to the fit prompt.
type PromptOverrides struct {
	ExtraCriteria     string `mapstructure:"extra-criteria"`
	DealBreakers      string `mapstructure:"deal-breakers"`
	CustomKeywords    string `mapstructure:"custom-keywords"`
	Tone              string `mapstructure:"tone"`
	RegionConstraints string `mapstructure:"region-constraints"`
	UserInstructions  string `mapstructure:"user-instructions"`
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500
	defaultTone             = "Friendly"

	matcherSystemPrompt = "You are a careful recruiter. You answer with JSON only."
)

func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger.WithAI(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) SetPromptOverrides(o PromptOverrides) {
	m.overrides = o
}

func (m *Matcher) Evaluate(ctx context.Context, session *profile.Session, posting *discovery.Posting) (*ai.FitAssessment, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if posting == nil {
		return nil, fmt.Errorf("posting is required")
	}

	candidate := map[string]any{
		"preferences": session.Preferences,
	}
	if session.Profile != nil {
		candidate["profile"] = session.Profile
	}

	candidateJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	postingJSON, err := json.MarshalIndent(posting, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := m.buildPrompt(string(candidateJSON), string(postingJSON))

	m.logger.Debug("gemini generate content request",
		zap.String("posting_key", posting.Key),
		zap.String(logger.FieldUser, session.UserID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, matcherSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("posting_key", posting.Key),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		m.logger.Debug("set fit to false by score threshold",
			zap.String("posting_key", posting.Key),
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func (m *Matcher) buildPrompt(candidateJSON, postingJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nJSON Response:"
	}

	tone := singleLine(m.overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}

	r := strings.NewReplacer(
		"{{EXTRA_CRITERIA}}", orNone(singleLine(m.overrides.ExtraCriteria)),
		"{{DEAL_BREAKERS}}", orNone(singleLine(m.overrides.DealBreakers)),
		"{{CUSTOM_KEYWORDS}}", orNone(keywords(m.overrides.CustomKeywords)),
		"{{TONE}}", tone,
		"{{REGION_CONSTRAINTS}}", orNone(singleLine(m.overrides.RegionConstraints)),
		"{{USER_INSTRUCTIONS}}", userInstructions(m.overrides.UserInstructions),
		"{{CANDIDATE_JSON}}", candidateJSON,
		"{{POSTING_JSON}}", postingJSON,
	)
	return r.Replace(template)
}

// neutralize keeps user text from posing as a prompt section header.
func neutralize(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func singleLine(s string) string {
	return neutralize(strings.Join(strings.Fields(s), " "))
}

func keywords(s string) string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = singleLine(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// userInstructions renders free text as an indented list, one entry per
// line, capped at maxUserInstructionRunes runes in total.
func userInstructions(s string) string {
	budget := maxUserInstructionRunes
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = singleLine(line)
		if line == "" || budget <= 0 {
			continue
		}
		if n := utf8.RuneCountInString(line); n > budget {
			line = string([]rune(line)[:budget])
		}
		budget -= utf8.RuneCountInString(line)
		lines = append(lines, "  - "+line)
	}
	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:     coerceBool(data["fit"]),
		Score:   score,
		Reason:  coerceString(data["reason"]),
		Message: coerceString(data["message"]),
	}, nil
}

// extractJSON strips markdown fences and any prose around the first JSON value.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	start := strings.IndexAny(raw, "{[")
	if start <= 0 {
		return raw
	}
	closing := "}"
	if raw[start] == '[' {
		closing = "]"
	}
	if end := strings.LastIndex(raw, closing); end > start {
		return raw[start : end+1]
	}
	return raw
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
