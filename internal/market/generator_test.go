package market

import (
	"io"
	"log/slog"
	mathrand "math/rand"
	"testing"
)

func TestSeedWorldRespectsSquadRules(t *testing.T) {
	r := DefaultRules()
	gen := NewGenerator(mathrand.New(mathrand.NewSource(7)))
	w := gen.SeedWorld(DefaultLeague, DefaultLeague[0].Name, 10)

	if len(w.Teams) != len(DefaultLeague) || len(w.FreeAgents) != 10 {
		t.Fatalf("got %d teams and %d free agents", len(w.Teams), len(w.FreeAgents))
	}
	for _, team := range w.Teams {
		if team.Controlled != (team.Name == w.UserTeam) {
			t.Fatalf("%s controlled=%v", team.Name, team.Controlled)
		}
		if n := len(team.Roster); n < r.MinSquadSize || n > r.MaxSquadSize {
			t.Fatalf("%s has %d players", team.Name, n)
		}
		for _, b := range Buckets {
			n := team.BucketCount(b, false)
			if n < r.RoleFloor[b] || n > r.RoleCap[b] {
				t.Fatalf("%s has %d %ss", team.Name, n, b)
			}
		}
		if team.Finances.WagesBudget < team.WageLoad() {
			t.Fatalf("%s starts over its wage budget", team.Name)
		}
		numbers := map[int]bool{}
		for _, p := range team.Roster {
			if p.Club != team.Name || p.WageMicros < r.MinWageMicros || p.ValueMicros <= 0 {
				t.Fatalf("bad generated player %+v", p)
			}
			if numbers[p.SquadNumber] {
				t.Fatalf("%s reuses squad number %d", team.Name, p.SquadNumber)
			}
			numbers[p.SquadNumber] = true
		}
	}
	for _, p := range w.FreeAgents {
		if p.Club != FreeAgentClub {
			t.Fatalf("free agent with club %q", p.Club)
		}
	}

	s := NewService(State{World: w}, r, &weekClock{week: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assertWorldConsistent(t, s)
}

func TestPlayerValue(t *testing.T) {
	if young, old := playerValue(75, 21), playerValue(75, 33); young <= old {
		t.Fatalf("young player valued %d, old %d", young, old)
	}
	if v := playerValue(20, 33); v < 200_000 {
		t.Fatalf("value below floor: %d", v)
	}
}
