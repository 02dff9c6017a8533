package matching

import (
	"math"
	"math/rand"
	"testing"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

var scenarioPrefs = profile.Preferences{
	Skills:    []string{"React"},
	Locations: []string{"Berlin"},
	Salary:    profile.SalaryRange{Min: 80000, Max: 120000},
}

func TestScenarioReactBerlinOutranksCobolTokyo(t *testing.T) {
	scorer := MustScorer(DefaultWeights())

	postings := []discovery.Posting{
		{
			Key:          "c1-cobol-1",
			Title:        "Mainframe Developer",
			Requirements: []string{"COBOL"},
			Location:     "Tokyo",
		},
		{
			Key:          "c1-react-0",
			Title:        "Frontend Engineer",
			Requirements: []string{"React"},
			Location:     "Berlin",
			Salary:       &profile.SalaryRange{Min: 90000, Max: 100000},
		},
	}

	react := scorer.Score(&postings[1], scenarioPrefs)
	if react.Score <= 0.8 {
		t.Fatalf("expected React/Berlin score > 0.8, got %v", react.Score)
	}

	cobol := scorer.Score(&postings[0], scenarioPrefs)
	if cobol.Score >= 0.3 {
		t.Fatalf("expected COBOL/Tokyo score < 0.3, got %v", cobol.Score)
	}

	ranked := scorer.Rank(postings, scenarioPrefs)
	if ranked[0].Key != "c1-react-0" {
		t.Fatalf("expected React posting first, got %q", ranked[0].Key)
	}
	if postings[0].Score != 0 {
		t.Fatalf("Rank must not mutate its input")
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := MustScorer(DefaultWeights())
	rng := rand.New(rand.NewSource(7))
	vocabulary := []string{"Go", "React", "Python", "SQL", "Kubernetes", "COBOL", ""}
	places := []string{"Berlin", "Tokyo", "Remote", "Berlin, DE", ""}

	pick := func(pool []string, n int) []string {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, pool[rng.Intn(len(pool))])
		}
		return out
	}

	for i := 0; i < 500; i++ {
		p := discovery.Posting{
			Title:        "Engineer",
			Requirements: pick(vocabulary, rng.Intn(5)),
			Location:     places[rng.Intn(len(places))],
			JobType:      []string{"", "full_time", "contract", "weird"}[rng.Intn(4)],
		}
		if rng.Intn(2) == 0 {
			p.Salary = &profile.SalaryRange{Min: float64(rng.Intn(150000)), Max: float64(rng.Intn(200000))}
		}
		prefs := profile.Preferences{
			Skills:    pick(vocabulary, rng.Intn(4)),
			Locations: pick(places, rng.Intn(3)),
			Salary:    profile.SalaryRange{Min: float64(rng.Intn(120000))},
			JobTypes:  []profile.JobType{profile.JobTypeFullTime},
		}

		m := scorer.Score(&p, prefs)
		if m.Score < 0 || m.Score > 1 || math.IsNaN(m.Score) {
			t.Fatalf("score out of bounds: %v for %+v / %+v", m.Score, p, prefs)
		}
		if m.Percent() < 0 || m.Percent() > 100 {
			t.Fatalf("percent out of bounds: %d", m.Percent())
		}
	}
}

func TestAddingMatchingSkillNeverLowersScore(t *testing.T) {
	scorer := MustScorer(DefaultWeights())
	prefs := profile.Preferences{
		Skills:    []string{"Go", "Kubernetes", "PostgreSQL"},
		Locations: []string{"Berlin"},
	}

	bases := [][]string{
		nil,
		{"Java"},
		{"Go"},
		{"Java", "Spring", "Oracle"},
		{"Go", "Kubernetes"},
		{"Go", "Go"},
	}

	for _, reqs := range bases {
		for _, skill := range prefs.Skills {
			before := discovery.Posting{Title: "Engineer", Requirements: reqs, Location: "Berlin"}
			after := before
			after.Requirements = append(append([]string{}, reqs...), skill)

			b := scorer.Score(&before, prefs).Score
			a := scorer.Score(&after, prefs).Score
			if a < b {
				t.Fatalf("adding %q to %v lowered the score: %v -> %v", skill, reqs, b, a)
			}
		}
	}
}

func TestMissingSalaryIsNeutral(t *testing.T) {
	scorer := MustScorer(DefaultWeights())

	without := discovery.Posting{Title: "Engineer", Requirements: []string{"React", "Redux"}, Location: "Berlin"}
	with := without
	with.Salary = &profile.SalaryRange{Min: scenarioPrefs.Salary.Min, Max: scenarioPrefs.Salary.Max}

	a := scorer.Score(&without, scenarioPrefs)
	b := scorer.Score(&with, scenarioPrefs)
	if a.Score != b.Score {
		t.Fatalf("missing salary must score like a perfect salary match: %v vs %v", a.Score, b.Score)
	}
	if a.Breakdown.Salary != 1 {
		t.Fatalf("expected neutral salary factor, got %v", a.Breakdown.Salary)
	}
}

func TestSalaryBelowMinimumNeverOutscoresOverlap(t *testing.T) {
	scorer := MustScorer(DefaultWeights())

	overlap := discovery.Posting{
		Title: "Engineer", Requirements: []string{"React"}, Location: "Berlin",
		Salary: &profile.SalaryRange{Min: 70000, Max: 85000},
	}
	below := overlap
	below.Salary = &profile.SalaryRange{Min: 40000, Max: 60000}

	o := scorer.Score(&overlap, scenarioPrefs).Score
	b := scorer.Score(&below, scenarioPrefs).Score
	if b >= o {
		t.Fatalf("below-band posting (%v) must score below the overlapping one (%v)", b, o)
	}

	other := below
	other.Salary = &profile.SalaryRange{Min: 40000, Max: 60000, Currency: "JPY"}
	withCurrency := scenarioPrefs
	withCurrency.Salary.Currency = "EUR"
	if f := scorer.Score(&other, withCurrency).Breakdown.Salary; f != 1 {
		t.Fatalf("different currencies must be neutral, got factor %v", f)
	}
}

func TestEmptyRequirementsStillScoreOnLocation(t *testing.T) {
	scorer := MustScorer(DefaultWeights())

	berlin := discovery.Posting{Title: "Engineer", Location: "Berlin"}
	tokyo := discovery.Posting{Title: "Engineer", Location: "Tokyo"}

	if scorer.Score(&berlin, scenarioPrefs).Score <= scorer.Score(&tokyo, scenarioPrefs).Score {
		t.Fatalf("location must still separate postings without requirements")
	}

	described := discovery.Posting{Title: "Engineer", Description: "We use React and Node.", Location: "Tokyo"}
	m := scorer.Score(&described, scenarioPrefs)
	if m.SkillMatches != 1 {
		t.Fatalf("expected description mention to count as a skill match, got %d", m.SkillMatches)
	}
}

func TestLocationRankOrder(t *testing.T) {
	scorer := MustScorer(DefaultWeights())
	prefs := profile.Preferences{Locations: []string{"Berlin", "Munich", "Remote"}}

	first := scorer.Score(&discovery.Posting{Location: "Berlin, Germany"}, prefs).Score
	second := scorer.Score(&discovery.Posting{Location: "Munich"}, prefs).Score
	last := scorer.Score(&discovery.Posting{Location: "Remote (EU)"}, prefs).Score

	if !(first > second && second > last && last > 0) {
		t.Fatalf("expected decaying location scores, got %v %v %v", first, second, last)
	}
}

func TestRankTieBreaksBySkillMatchesThenSourceOrder(t *testing.T) {
	weights := DefaultWeights()
	weights.Skills = 0
	weights.Location = 1
	scorer := MustScorer(weights)

	prefs := profile.Preferences{Skills: []string{"Go", "SQL"}, Locations: []string{"Berlin"}}
	postings := []discovery.Posting{
		{Key: "a", Location: "Berlin", Requirements: []string{"Java"}},
		{Key: "b", Location: "Berlin", Requirements: []string{"Go", "SQL"}},
		{Key: "c", Location: "Berlin", Requirements: []string{"Java"}},
		{Key: "d", Location: "Berlin", Requirements: []string{"Go"}},
	}

	ranked := scorer.Rank(postings, prefs)
	got := []string{ranked[0].Key, ranked[1].Key, ranked[2].Key, ranked[3].Key}
	want := []string{"b", "d", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Weights)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Weights) {}},
		{name: "negative", mutate: func(w *Weights) { w.Skills = -1 }, wantErr: true},
		{name: "all zero", mutate: func(w *Weights) { *w = Weights{} }, wantErr: true},
		{name: "penalty one", mutate: func(w *Weights) { w.SalaryPenalty = 1 }, wantErr: true},
		{name: "decay above one", mutate: func(w *Weights) { w.LocationRankDecay = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			_, err := NewScorer(w)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewScorer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAboveFloor(t *testing.T) {
	postings := []discovery.Posting{{Key: "a", Score: 0.9}, {Key: "b", Score: 0.5}, {Key: "c", Score: 0.6}}
	got := AboveFloor(postings, 0.6)
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "c" {
		t.Fatalf("unexpected filtered postings: %+v", got)
	}
}

func TestNonFiniteSalaryMinimumIsNeutral(t *testing.T) {
	scorer := MustScorer(DefaultWeights())
	posting := discovery.Posting{
		Title:        "Frontend Engineer",
		Requirements: []string{"React"},
		Location:     "Berlin",
		Salary:       &profile.SalaryRange{Min: 90000, Max: 100000},
	}

	for _, bound := range []float64{math.NaN(), math.Inf(1)} {
		prefs := scenarioPrefs
		prefs.Salary = profile.SalaryRange{Min: bound}

		m := scorer.Score(&posting, prefs)
		if m.Breakdown.Salary != 1 {
			t.Fatalf("salary factor with min %v = %v, want 1", bound, m.Breakdown.Salary)
		}
		if m.Score <= 0.8 {
			t.Fatalf("score with min %v = %v, want the salary dimension ignored", bound, m.Score)
		}
	}
}
