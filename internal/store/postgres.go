package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"touchline/internal/market"
)

// Postgres keeps the engine snapshot in a single JSONB row and mirrors every
// completed transfer into the transfers table.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, log: logger}
}

func (p *Postgres) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS market_state (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			week INT NOT NULL,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id UUID PRIMARY KEY,
			season INT NOT NULL,
			week INT NOT NULL,
			player_id TEXT NOT NULL,
			player_name TEXT NOT NULL,
			from_club TEXT NOT NULL,
			to_club TEXT NOT NULL,
			fee_micros BIGINT NOT NULL,
			wage_micros BIGINT NOT NULL,
			contract_years INT NOT NULL,
			kind TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_season_week ON transfers(season, week)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_clubs ON transfers(from_club, to_club)`,
	}
	for _, m := range migrations {
		if _, err := p.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	p.log.Info("database migrations completed")
	return nil
}

// Persist implements market.Persister.
func (p *Postgres) Persist(ctx context.Context, st market.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO market_state (id, week, state, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET week = EXCLUDED.week, state = EXCLUDED.state, updated_at = now()
	`, st.Week, raw)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. ok is false when nothing has been saved yet.
func (p *Postgres) Load(ctx context.Context) (st market.State, ok bool, err error) {
	var raw []byte
	err = p.pool.QueryRow(ctx, `SELECT state FROM market_state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, false, nil
	}
	if err != nil {
		return st, false, fmt.Errorf("load state: %w", err)
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, false, fmt.Errorf("decode state: %w", err)
	}
	return st, true, nil
}

// RecordTransfer implements market.HistorySink.
func (p *Postgres) RecordTransfer(ctx context.Context, rec market.TransferRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO transfers (id, season, week, player_id, player_name, from_club, to_club, fee_micros, wage_micros, contract_years, kind, recorded_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Season, rec.Week, rec.PlayerID, rec.PlayerName, rec.From, rec.To,
		rec.FeeMicros, rec.WageMicros, rec.ContractYears, string(rec.Kind), rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// Transfers lists recorded transfers involving club (any club when empty),
// newest first.
func (p *Postgres) Transfers(ctx context.Context, club string, limit int) ([]market.TransferRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, season, week, player_id, player_name, from_club, to_club, fee_micros, wage_micros, contract_years, kind, recorded_at
		FROM transfers
		WHERE $1 = '' OR from_club = $1 OR to_club = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, club, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []market.TransferRecord
	for rows.Next() {
		var rec market.TransferRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.Season, &rec.Week, &rec.PlayerID, &rec.PlayerName, &rec.From, &rec.To,
			&rec.FeeMicros, &rec.WageMicros, &rec.ContractYears, &kind, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.Kind = market.OfferKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}
