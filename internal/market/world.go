package market

import "sort"

// World is the roster and finance state the engine operates on. It is owned
// by a Service and only mutated under the service lock.
type World struct {
	Season     int       `json:"season"`
	UserTeam   string    `json:"user_team"`
	Teams      []*Team   `json:"teams"`
	FreeAgents []*Player `json:"free_agents"`
}

func (w *World) Team(name string) (*Team, bool) {
	for _, t := range w.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Locate finds a player on any roster or in the free-agent pool. The returned
// team is nil for free agents.
func (w *World) Locate(playerID string) (*Player, *Team, bool) {
	for _, t := range w.Teams {
		if p := t.Player(playerID); p != nil {
			return p, t, true
		}
	}
	if p := w.FreeAgent(playerID); p != nil {
		return p, nil, true
	}
	return nil, nil, false
}

func (w *World) FreeAgent(playerID string) *Player {
	for _, p := range w.FreeAgents {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (w *World) removeFreeAgent(playerID string) bool {
	for i, p := range w.FreeAgents {
		if p.ID == playerID {
			w.FreeAgents = append(w.FreeAgents[:i], w.FreeAgents[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Team) Player(playerID string) *Player {
	for _, p := range t.Roster {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// WageLoad is the weekly wage bill of the current roster.
func (t *Team) WageLoad() int64 {
	var total int64
	for _, p := range t.Roster {
		total += p.WageMicros
	}
	return total
}

// BucketCount counts roster players whose primary role falls in b. When
// excludeListed is set, players already on the sale list are not counted.
func (t *Team) BucketCount(b Bucket, excludeListed bool) int {
	n := 0
	for _, p := range t.Roster {
		if excludeListed && p.Listed {
			continue
		}
		if pb, err := p.Bucket(); err == nil && pb == b {
			n++
		}
	}
	return n
}

func (t *Team) ListedCount() int {
	n := 0
	for _, p := range t.Roster {
		if p.Listed {
			n++
		}
	}
	return n
}

func (t *Team) saleEntry(playerID string) (int, bool) {
	for i, e := range t.Finances.PlayersForSale {
		if e.PlayerID == playerID {
			return i, true
		}
	}
	return -1, false
}

func (t *Team) removeSaleEntry(playerID string) {
	if i, ok := t.saleEntry(playerID); ok {
		t.Finances.PlayersForSale = append(t.Finances.PlayersForSale[:i], t.Finances.PlayersForSale[i+1:]...)
	}
}

func (t *Team) removePlayer(playerID string) bool {
	for i, p := range t.Roster {
		if p.ID == playerID {
			t.Roster = append(t.Roster[:i], t.Roster[i+1:]...)
			t.removeSaleEntry(playerID)
			return true
		}
	}
	return false
}

// nextSquadNumber returns the lowest squad number from 1 not used on the roster.
func (t *Team) nextSquadNumber() int {
	used := make([]int, 0, len(t.Roster))
	for _, p := range t.Roster {
		if p.SquadNumber > 0 {
			used = append(used, p.SquadNumber)
		}
	}
	sort.Ints(used)
	n := 1
	for _, u := range used {
		if u == n {
			n++
		} else if u > n {
			break
		}
	}
	return n
}
