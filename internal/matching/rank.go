package matching

import (
	"sort"

	"github.com/spigell/jobscout/internal/discovery"
	"github.com/spigell/jobscout/internal/profile"
)

// Rank scores every posting in place and returns them best first. Ties are
// broken by skill matches, then by the order the source returned.
func (s *Scorer) Rank(postings []discovery.Posting, prefs profile.Preferences) []discovery.Posting {
	ranked := make([]discovery.Posting, len(postings))
	copy(ranked, postings)

	for i := range ranked {
		m := s.Score(&ranked[i], prefs)
		ranked[i].Score = m.Score
		ranked[i].SkillMatches = m.SkillMatches
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].SkillMatches > ranked[j].SkillMatches
	})

	return ranked
}

// AboveFloor keeps postings scoring at least floor, preserving order.
func AboveFloor(postings []discovery.Posting, floor float64) []discovery.Posting {
	out := make([]discovery.Posting, 0, len(postings))
	for _, p := range postings {
		if p.Score >= floor {
			out = append(out, p)
		}
	}
	return out
}
