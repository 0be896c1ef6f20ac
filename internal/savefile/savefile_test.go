package savefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"touchline/internal/market"
)

func TestPersistAndLoad(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nested", "save.json"))

	if _, ok, err := f.Load(); err != nil || ok {
		t.Fatalf("missing save should load empty, ok=%v err=%v", ok, err)
	}

	st := market.State{
		Week: 4,
		World: &market.World{
			Season:   1,
			UserTeam: "User FC",
			Teams: []*market.Team{{
				Name:   "User FC",
				Tier:   market.TierRich,
				Roster: []*market.Player{{ID: "p1", Name: "Marco Rossi", Roles: []string{"CM"}, Club: "User FC", Listed: true}},
				Finances: market.Finances{
					TransferBudget: 20 * market.MicrosPerMillion,
					PlayersForSale: []market.SaleEntry{{PlayerID: "p1", AskingMicros: market.MicrosPerMillion, ListedWeek: 3}},
				},
			}},
		},
		Ledger: market.LedgerState{
			PendingOffers: []*market.Offer{{
				ID:       "o1",
				PlayerID: "p1",
				Buyer:    "Porto",
				Deal:     market.TransferDeal{Seller: "User FC", FeeMicros: 9 * market.MicrosPerMillion},
				Status:   market.StatusPending,
				Deadline: 5,
			}},
			RejectedPlayers: []string{"p9"},
			AttemptsCount:   map[string]int{"p9": 3},
		},
	}
	if err := f.Persist(context.Background(), st); err != nil {
		t.Fatalf("persist: %v", err)
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("save file mode %v", info.Mode().Perm())
	}

	got, ok, err := f.Load()
	if err != nil || !ok {
		t.Fatalf("load ok=%v err=%v", ok, err)
	}
	if got.Week != 4 || got.World.Teams[0].Tier != market.TierRich {
		t.Fatalf("unexpected state %+v", got)
	}
	o := got.Ledger.PendingOffers[0]
	if o.Seller() != "User FC" || o.Fee() != 9*market.MicrosPerMillion {
		t.Fatalf("offer deal lost: %+v", o)
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := f.Load(); ok {
		t.Fatalf("save still present after clear")
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := New(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestOpenReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	if err := New(path).Persist(context.Background(), market.State{Week: 9, World: &market.World{Season: 1}}); err != nil {
		t.Fatalf("persist: %v", err)
	}

	_, st, ok, err := Open(path, false)
	if err != nil || !ok || st.Week != 9 {
		t.Fatalf("open: week=%d ok=%v err=%v", st.Week, ok, err)
	}

	f, _, ok, err := Open(path, true)
	if err != nil || ok {
		t.Fatalf("reset open: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Fatalf("save survived reset: %v", err)
	}
	if _, _, _, err := Open(path, true); err != nil {
		t.Fatalf("reset without a save: %v", err)
	}
}
