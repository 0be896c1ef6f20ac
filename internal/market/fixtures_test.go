package market

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

type weekClock struct {
	week int
}

func (c *weekClock) CurrentWeek() int { return c.week }

type recordingNotifier struct {
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) { n.msgs = append(n.msgs, msg) }

// testTeam builds a 22-player squad where every player is valued at 10 with
// a weekly wage of 0.05, a transfer budget of 50 and 1 of wage headroom.
func testTeam(name string, tier Tier) *Team {
	t := &Team{Name: name, Tier: tier}
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	for i, role := range squadTemplate {
		t.Roster = append(t.Roster, &Player{
			ID:            fmt.Sprintf("%s-%d", slug, i),
			Name:          fmt.Sprintf("%s Player %d", name, i),
			Roles:         []string{role},
			Age:           25,
			ValueMicros:   10 * MicrosPerMillion,
			WageMicros:    50_000,
			ContractYears: 2,
			Club:          name,
			SquadNumber:   i + 1,
		})
	}
	t.Finances = Finances{
		TransferBudget: 50 * MicrosPerMillion,
		WagesBudget:    t.WageLoad() + MicrosPerMillion,
	}
	return t
}

func userTeam(name string) *Team {
	t := testTeam(name, TierStandard)
	t.Controlled = true
	return t
}

func newTestService(t *testing.T, teams ...*Team) (*Service, *weekClock, *scriptedRand) {
	t.Helper()
	world := &World{Season: 1, Teams: teams}
	for _, team := range teams {
		if team.Controlled {
			world.UserTeam = team.Name
		}
	}
	clock := &weekClock{week: 1}
	rnd := &scriptedRand{}
	s := NewService(State{World: world}, DefaultRules(), clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.SetRand(rnd)
	return s, clock, rnd
}

// assertWorldConsistent checks roster ownership, uniqueness and the sale
// list mirror across the whole world.
func assertWorldConsistent(t *testing.T, s *Service) {
	t.Helper()
	seen := make(map[string]string)
	for _, team := range s.world.Teams {
		listed := make(map[string]bool)
		for _, p := range team.Roster {
			if p.Club != team.Name {
				t.Fatalf("player %s on %s roster has club %q", p.ID, team.Name, p.Club)
			}
			if where, dup := seen[p.ID]; dup {
				t.Fatalf("player %s on both %s and %s", p.ID, where, team.Name)
			}
			seen[p.ID] = team.Name
			if p.Listed {
				listed[p.ID] = true
			}
		}
		if len(team.Finances.PlayersForSale) != len(listed) {
			t.Fatalf("%s sale list has %d entries, %d players listed", team.Name, len(team.Finances.PlayersForSale), len(listed))
		}
		for _, e := range team.Finances.PlayersForSale {
			if !listed[e.PlayerID] {
				t.Fatalf("%s sale entry %s is not a listed roster player", team.Name, e.PlayerID)
			}
		}
	}
	for _, p := range s.world.FreeAgents {
		if where, dup := seen[p.ID]; dup {
			t.Fatalf("free agent %s also on %s", p.ID, where)
		}
	}
}

func offerFor(t *testing.T, offers []Offer, buyer string) Offer {
	t.Helper()
	for _, o := range offers {
		if o.Buyer == buyer {
			return o
		}
	}
	t.Fatalf("no offer from %s", buyer)
	return Offer{}
}
