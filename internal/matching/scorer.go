// Package matching scores discovered postings against user preferences.
//
// The score is a weighted average of the skill, location, job type and
// industry dimensions, multiplied by a salary factor. A dimension with no
// data on either side is left out of the average, and a posting without
// salary information keeps a salary factor of 1.
package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/utils"
)

// Weights are the relative weights of the averaged dimensions plus the salary penalty.
type Weights struct {
	Skills   float64 `mapstructure:"skills"`
	Location float64 `mapstructure:"location"`
	JobType  float64 `mapstructure:"job-type"`
	Industry float64 `mapstructure:"industry"`
	// SalaryPenalty in [0,1) is how hard a band entirely below the user's
	// minimum is penalized. Zero disables the salary dimension.
	SalaryPenalty float64 `mapstructure:"salary-penalty"`
	// LocationRankDecay lowers the location score for less preferred locations.
	LocationRankDecay float64 `mapstructure:"location-rank-decay"`
}

// DefaultWeights are used when no weights are configured.
func DefaultWeights() Weights {
	return Weights{
		Skills:            0.55,
		Location:          0.30,
		JobType:           0.10,
		Industry:          0.05,
		SalaryPenalty:     0.6,
		LocationRankDecay: 0.25,
	}
}

// Validate checks that the weights produce scores in [0,1].
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills": w.Skills, "location": w.Location, "job-type": w.JobType, "industry": w.Industry,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	if w.Skills+w.Location+w.JobType+w.Industry <= 0 {
		return errors.New("at least one weight must be positive")
	}
	if w.SalaryPenalty < 0 || w.SalaryPenalty >= 1 {
		return fmt.Errorf("salary-penalty must be in [0,1), got %v", w.SalaryPenalty)
	}
	if w.LocationRankDecay < 0 || w.LocationRankDecay > 1 {
		return fmt.Errorf("location-rank-decay must be in [0,1], got %v", w.LocationRankDecay)
	}
	return nil
}

// Breakdown holds the per-dimension values. A nil entry was left out.
type Breakdown struct {
	Skills   *float64 `json:"skills,omitempty"`
	Location *float64 `json:"location,omitempty"`
	JobType  *float64 `json:"job_type,omitempty"`
	Industry *float64 `json:"industry,omitempty"`
	Salary   float64  `json:"salary_factor"`
}

// Match is the score of one posting.
type Match struct {
	Score        float64   `json:"score"`
	SkillMatches int       `json:"skill_matches"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Percent returns the score as an integer percentage.
func (m Match) Percent() int {
	return int(math.Round(clamp(m.Score) * 100))
}

// Scorer is a pure function of posting and preferences.
type Scorer struct {
	weights Weights
}

// NewScorer validates w and returns a scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// MustScorer panics on invalid weights. Intended for defaults and tests.
func MustScorer(w Weights) *Scorer {
	s, err := NewScorer(w)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the match of p against prefs.
func (s *Scorer) Score(p *discovery.Posting, prefs profile.Preferences) Match {
	var (
		b          Breakdown
		sum, total float64
	)

	add := func(weight float64, value *float64) {
		if value == nil || weight <= 0 {
			return
		}
		sum += weight * *value
		total += weight
	}

	skills, matches := skillScore(p, prefs.Skills)
	b.Skills = skills
	add(s.weights.Skills, skills)

	b.Location = locationScore(p.Location, prefs.Locations, s.weights.LocationRankDecay)
	add(s.weights.Location, b.Location)

	b.JobType = jobTypeScore(p.JobType, prefs.JobTypes)
	add(s.weights.JobType, b.JobType)

	b.Industry = industryScore(p.Industry, prefs.Industries)
	add(s.weights.Industry, b.Industry)

	base := 0.0
	if total > 0 {
		base = sum / total
	}

	b.Salary = salaryFactor(p.Salary, prefs.Salary, s.weights.SalaryPenalty)

	return Match{
		Score:        clamp(base * b.Salary),
		SkillMatches: matches,
		Breakdown:    b,
	}
}

// skillScore averages the share of requirements matched by the user's skills
// and the share of user skills found in the posting. With no requirements only
// the second share is used. It returns nil when the user listed no skills.
func skillScore(p *discovery.Posting, skills []string) (*float64, int) {
	userSkills := utils.UniqueFold(skills)
	if len(userSkills) == 0 {
		return nil, 0
	}

	folded := make([]string, 0, len(userSkills))
	for _, s := range userSkills {
		folded = append(folded, utils.Fold(s))
	}

	requirements := make([]string, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		if f := utils.Fold(r); f != "" {
			requirements = append(requirements, f)
		}
	}
	text := tokenSet(p.Title + " " + p.Description)

	matchedReqs := 0
	for _, req := range requirements {
		for _, skill := range folded {
			if requirementMatches(req, skill) {
				matchedReqs++
				break
			}
		}
	}

	matchedSkills := 0
	for _, skill := range folded {
		found := false
		for _, req := range requirements {
			if requirementMatches(req, skill) {
				found = true
				break
			}
		}
		if !found {
			found = textMentions(text, skill)
		}
		if found {
			matchedSkills++
		}
	}

	userSide := float64(matchedSkills) / float64(len(folded))
	score := userSide
	if len(requirements) > 0 {
		reqSide := float64(matchedReqs) / float64(len(requirements))
		score = (userSide + reqSide) / 2
	}

	return &score, matchedSkills
}

// requirementMatches reports whether a requirement names the skill, either
// exactly or as one of its words ("Go" matches "Go 1.22+").
func requirementMatches(requirement, skill string) bool {
	if requirement == skill {
		return true
	}
	_, ok := tokenSet(requirement)[skill]
	if ok {
		return true
	}
	return strings.Contains(skill, " ") && strings.Contains(requirement, skill)
}

func textMentions(tokens map[string]struct{}, skill string) bool {
	if _, ok := tokens[skill]; ok {
		return true
	}
	if !strings.Contains(skill, " ") {
		return false
	}
	for _, word := range strings.Fields(skill) {
		if _, ok := tokens[word]; !ok {
			return false
		}
	}
	return true
}

// tokenSet splits text on anything that is not part of a technology name.
func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			return false
		case r == '+', r == '#', r == '.', r == '-':
			return false
		}
		return true
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".-")] = struct{}{}
		set[f] = struct{}{}
	}
	return set
}

// locationScore is 1 for the most preferred location and decays down the list.
func locationScore(location string, preferred []string, decay float64) *float64 {
	location = utils.Fold(location)
	prefs := utils.UniqueFold(preferred)
	if location == "" || len(prefs) == 0 {
		return nil
	}

	score := 0.0
	for i, pref := range prefs {
		if !strings.Contains(location, utils.Fold(pref)) {
			continue
		}
		rank := 0.0
		if len(prefs) > 1 {
			rank = float64(i) / float64(len(prefs)-1)
		}
		score = 1 - decay*rank
		break
	}
	return &score
}

func jobTypeScore(jobType string, wanted []profile.JobType) *float64 {
	if strings.TrimSpace(jobType) == "" || len(wanted) == 0 {
		return nil
	}
	parsed, err := profile.ParseJobType(jobType)
	if err != nil {
		return nil
	}
	score := 0.0
	for _, w := range wanted {
		if w == parsed {
			score = 1
			break
		}
	}
	return &score
}

func industryScore(industry string, wanted []string) *float64 {
	industry = utils.Fold(industry)
	if industry == "" || len(wanted) == 0 {
		return nil
	}
	score := 0.0
	for _, w := range wanted {
		f := utils.Fold(w)
		if f != "" && (strings.Contains(industry, f) || strings.Contains(f, industry)) {
			score = 1
			break
		}
	}
	return &score
}

// salaryFactor is 1 unless the posting's band lies entirely below the user's
// minimum. Different currencies cannot be compared and count as unknown.
func salaryFactor(posting *profile.SalaryRange, wanted profile.SalaryRange, penalty float64) float64 {
	if posting == nil || posting.IsZero() || !(wanted.Min > 0) || math.IsInf(wanted.Min, 0) || penalty <= 0 {
		return 1
	}
	if posting.Currency != "" && wanted.Currency != "" && !strings.EqualFold(posting.Currency, wanted.Currency) {
		return 1
	}

	top := posting.Max
	if top <= 0 {
		top = posting.Min
	}
	if top >= wanted.Min {
		return 1
	}

	ratio := top / wanted.Min
	if math.IsNaN(ratio) {
		return 1
	}
	return 1 - penalty*(1-ratio)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
