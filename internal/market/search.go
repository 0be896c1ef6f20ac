package market

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

type PlayerMatch struct {
	Player   Player `json:"player"`
	Distance int    `json:"distance"`
}

// FindPlayer searches every roster and the free-agent pool for names that
// fuzzily contain query, closest first. When nothing matches, the single
// nearest name by edit distance is returned.
func (s *Service) FindPlayer(query string, limit int) []PlayerMatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	var pool []*Player
	for _, t := range s.world.Teams {
		pool = append(pool, t.Roster...)
	}
	pool = append(pool, s.world.FreeAgents...)
	if len(pool) == 0 {
		return nil
	}
	names := make([]string, len(pool))
	for i, p := range pool {
		names[i] = p.Name
	}

	ranks := fuzzy.RankFindFold(query, names)
	sort.Sort(ranks)
	if len(ranks) == 0 {
		best, bestDist := 0, -1
		for i, name := range names {
			d := fuzzy.LevenshteinDistance(strings.ToLower(query), strings.ToLower(name))
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		return []PlayerMatch{{Player: copyPlayer(pool[best]), Distance: bestDist}}
	}

	if limit <= 0 || limit > len(ranks) {
		limit = len(ranks)
	}
	out := make([]PlayerMatch, 0, limit)
	for _, r := range ranks[:limit] {
		out = append(out, PlayerMatch{Player: copyPlayer(pool[r.OriginalIndex]), Distance: r.Distance})
	}
	return out
}
