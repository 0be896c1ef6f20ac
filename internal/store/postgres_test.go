package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"touchline/internal/config"
	"touchline/internal/market"
)

// Runs only against a disposable database named by TOUCHLINE_TEST_DATABASE_URL.
func testStore(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("TOUCHLINE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TOUCHLINE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url, config.PoolConfig{MaxConns: 2, MinConns: 1})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	p := NewPostgres(pool, nil)
	if err := p.RunMigrations(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return p
}

func TestPersistAndLoad(t *testing.T) {
	p := testStore(t)
	ctx := context.Background()

	st := market.State{
		Week: 7,
		World: &market.World{Season: 1, UserTeam: "User FC", Teams: []*market.Team{
			{Name: "User FC", Tier: market.TierStandard, Controlled: true},
		}},
	}
	if err := p.Persist(ctx, st); err != nil {
		t.Fatalf("persist: %v", err)
	}
	got, ok, err := p.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Week != 7 || got.World.UserTeam != "User FC" || len(got.World.Teams) != 1 {
		t.Fatalf("unexpected state %+v", got)
	}
}

func TestRecordAndListTransfers(t *testing.T) {
	p := testStore(t)
	ctx := context.Background()

	club := "Club " + uuid.NewString()[:8]
	rec := market.TransferRecord{
		ID:            uuid.NewString(),
		Season:        1,
		Week:          3,
		PlayerID:      "p-1",
		PlayerName:    "Marco Rossi",
		From:          club,
		To:            "Elsewhere",
		FeeMicros:     9_000_000,
		WageMicros:    40_000,
		ContractYears: 2,
		Kind:          market.KindTransfer,
		RecordedAt:    time.Now().UTC(),
	}
	if err := p.RecordTransfer(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Duplicate ids are ignored.
	if err := p.RecordTransfer(ctx, rec); err != nil {
		t.Fatalf("record duplicate: %v", err)
	}
	got, err := p.Transfers(ctx, club, 10)
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID || got[0].Kind != market.KindTransfer {
		t.Fatalf("unexpected transfers %+v", got)
	}
}
