package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

// Clock supplies the current scheduling period (league week).
type Clock interface {
	CurrentWeek() int
}

// Notifier receives human-readable messages for the player. Delivery is fire
// and forget.
type Notifier interface {
	Notify(msg string)
}

// Persister is invoked after every externally observable mutation.
// Failures are logged and never roll back engine state.
type Persister interface {
	Persist(ctx context.Context, st State) error
}

// HistorySink receives every completed transfer.
type HistorySink interface {
	RecordTransfer(ctx context.Context, rec TransferRecord) error
}

// Source is the randomness the engine draws from. *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// State is the full engine snapshot handed to persistence hooks.
type State struct {
	Week    int              `json:"week"`
	World   *World           `json:"world"`
	Ledger  LedgerState      `json:"ledger"`
	History []TransferRecord `json:"history"`
}

type Service struct {
	mu        sync.Mutex
	flushMu   sync.Mutex
	out       outbox
	log       *slog.Logger
	rand      Source
	rules     Rules
	clock     Clock
	world     *World
	ledger    *Ledger
	history   []TransferRecord
	gen       *Generator
	notifier  Notifier
	persister Persister
	sinks     []HistorySink
	now       func() time.Time
}

// outbox collects side effects produced under mu. They are delivered by flush
// once the lock is released.
type outbox struct {
	notes   []string
	records []TransferRecord
	dirty   bool
}

func NewService(st State, rules Rules, clock Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	world := st.World
	if world == nil {
		world = &World{Season: 1}
	}
	src := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	return &Service{
		log:     logger,
		rand:    src,
		rules:   rules,
		clock:   clock,
		world:   world,
		ledger:  LedgerFromState(st.Ledger),
		history: append([]TransferRecord(nil), st.History...),
		gen:     NewGenerator(src),
		now:     time.Now,
	}
}

// SetRand replaces the random source used for offer generation and
// acceptance draws.
func (s *Service) SetRand(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rand = src
	s.gen = NewGenerator(src)
}

func (s *Service) SetGenerator(gen *Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen = gen
}

func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *Service) SetPersister(p Persister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persister = p
}

func (s *Service) AddHistorySink(sink HistorySink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// SetSeason stamps subsequent transfer records with season.
func (s *Service) SetSeason(season int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if season > 0 {
		s.world.Season = season
	}
}

func (s *Service) Rules() Rules {
	return s.rules
}

func (s *Service) UserTeam() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.UserTeam
}

// Snapshot returns a deep copy of the engine state.
func (s *Service) Snapshot() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() (State, error) {
	raw, err := json.Marshal(s.world)
	if err != nil {
		return State{}, fmt.Errorf("encode world: %w", err)
	}
	var world World
	if err := json.Unmarshal(raw, &world); err != nil {
		return State{}, fmt.Errorf("decode world: %w", err)
	}
	return State{
		Week:    s.clock.CurrentWeek(),
		World:   &world,
		Ledger:  s.ledger.State(),
		History: append([]TransferRecord(nil), s.history...),
	}, nil
}

func (s *Service) markDirty() {
	s.out.dirty = true
}

func (s *Service) notify(format string, args ...any) {
	s.out.notes = append(s.out.notes, fmt.Sprintf(format, args...))
}

// flush hands queued transfer records, notifications and a fresh snapshot to
// the hooks. Callers defer it ahead of taking mu so it runs unlocked.
// flushMu keeps snapshots reaching the persister in the order they were taken.
func (s *Service) flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	out := s.out
	s.out = outbox{}
	notifier, persister := s.notifier, s.persister
	sinks := append([]HistorySink(nil), s.sinks...)
	var (
		st      State
		snapErr error
	)
	if out.dirty && persister != nil {
		st, snapErr = s.snapshotLocked()
	}
	s.mu.Unlock()

	for _, rec := range out.records {
		for _, sink := range sinks {
			if err := sink.RecordTransfer(ctx, rec); err != nil {
				s.log.Warn("history sink failed", "transfer_id", rec.ID, "err", err)
			}
		}
	}
	if notifier != nil {
		for _, msg := range out.notes {
			notifier.Notify(msg)
		}
	}
	if !out.dirty || persister == nil {
		return
	}
	if snapErr != nil {
		s.log.Warn("snapshot failed", "err", snapErr)
		return
	}
	if err := persister.Persist(ctx, st); err != nil {
		s.log.Warn("persist failed", "err", err)
	}
}

func (s *Service) isUser(team string) bool {
	return team != "" && team == s.world.UserTeam
}

func (s *Service) tierOf(name string) Tier {
	if t, ok := s.world.Team(name); ok {
		return t.Tier
	}
	if c, ok := s.foreignClub(name); ok {
		return c.Tier
	}
	return TierStandard
}

func (s *Service) foreignClub(name string) (ForeignClub, bool) {
	for _, c := range s.rules.ForeignClubs {
		if c.Name == name {
			return c, true
		}
	}
	return ForeignClub{}, false
}

func (s *Service) team(name string) (*Team, error) {
	t, ok := s.world.Team(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	return t, nil
}

func (s *Service) rosterPlayer(teamName, playerID string) (*Team, *Player, error) {
	t, err := s.team(teamName)
	if err != nil {
		return nil, nil, err
	}
	p := t.Player(playerID)
	if p == nil {
		return t, nil, fmt.Errorf("%w: %s at %s", ErrPlayerNotFound, playerID, teamName)
	}
	return t, p, nil
}

// Team returns a copy of the named team.
func (s *Service) Team(name string) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.team(name)
	if err != nil {
		return Team{}, err
	}
	return copyTeam(t), nil
}

func (s *Service) Teams() []Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Team, 0, len(s.world.Teams))
	for _, t := range s.world.Teams {
		out = append(out, copyTeam(t))
	}
	return out
}

func (s *Service) FreeAgents() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Player, 0, len(s.world.FreeAgents))
	for _, p := range s.world.FreeAgents {
		out = append(out, copyPlayer(p))
	}
	return out
}

// OffersForPlayer returns the pending offers for playerID in ledger order.
func (s *Service) OffersForPlayer(playerID string) []Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOffers(s.ledger.ForPlayer(playerID))
}

// PendingOffers returns every pending offer where team is buyer or seller.
func (s *Service) PendingOffers(team string) []Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Offer
	for _, o := range s.ledger.Pending() {
		if o.Buyer == team || o.Seller() == team {
			out = append(out, o)
		}
	}
	return copyOffers(out)
}

func (s *Service) TransferHistory() []TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TransferRecord(nil), s.history...)
}

func (s *Service) IsRejectedPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IsRejected(playerID)
}

func copyPlayer(p *Player) Player {
	cp := *p
	cp.Roles = append([]string(nil), p.Roles...)
	return cp
}

func copyTeam(t *Team) Team {
	cp := *t
	cp.Roster = make([]*Player, 0, len(t.Roster))
	for _, p := range t.Roster {
		pc := copyPlayer(p)
		cp.Roster = append(cp.Roster, &pc)
	}
	cp.Finances.PlayersForSale = append([]SaleEntry(nil), t.Finances.PlayersForSale...)
	return cp
}

func copyOffers(in []*Offer) []Offer {
	out := make([]Offer, 0, len(in))
	for _, o := range in {
		out = append(out, *o)
	}
	return out
}
