package market

import "sort"

// DeferredTask is queued interest generation for a freshly listed player,
// drained at the start of the next resolution pass.
type DeferredTask struct {
	PlayerID string `json:"player_id"`
	Team     string `json:"team"`
	Deadline int    `json:"deadline"`
}

// Ledger is the authoritative negotiation state: every pending offer, the
// players whose negotiation patience ran out, per-player rejection counts and
// the deferred interest queue.
type Ledger struct {
	offers   []*Offer
	rejected map[string]struct{}
	attempts map[string]int
	deferred []DeferredTask
}

type LedgerState struct {
	PendingOffers   []*Offer       `json:"pending_offers"`
	RejectedPlayers []string       `json:"rejected_players"`
	AttemptsCount   map[string]int `json:"attempts_count"`
	Deferred        []DeferredTask `json:"deferred"`
}

func NewLedger() *Ledger {
	return &Ledger{
		rejected: make(map[string]struct{}),
		attempts: make(map[string]int),
	}
}

func LedgerFromState(st LedgerState) *Ledger {
	l := NewLedger()
	for _, o := range st.PendingOffers {
		if o != nil && o.Status == StatusPending {
			l.offers = append(l.offers, o)
		}
	}
	for _, id := range st.RejectedPlayers {
		l.rejected[id] = struct{}{}
	}
	for id, n := range st.AttemptsCount {
		l.attempts[id] = n
	}
	l.deferred = append(l.deferred, st.Deferred...)
	return l
}

func (l *Ledger) State() LedgerState {
	st := LedgerState{
		PendingOffers:   make([]*Offer, 0, len(l.offers)),
		RejectedPlayers: make([]string, 0, len(l.rejected)),
		AttemptsCount:   make(map[string]int, len(l.attempts)),
		Deferred:        append([]DeferredTask(nil), l.deferred...),
	}
	for _, o := range l.offers {
		cp := *o
		st.PendingOffers = append(st.PendingOffers, &cp)
	}
	for id := range l.rejected {
		st.RejectedPlayers = append(st.RejectedPlayers, id)
	}
	sort.Strings(st.RejectedPlayers)
	for id, n := range l.attempts {
		st.AttemptsCount[id] = n
	}
	return st
}

func (l *Ledger) Append(o *Offer) {
	l.offers = append(l.offers, o)
}

func (l *Ledger) Pending() []*Offer {
	return append([]*Offer(nil), l.offers...)
}

func (l *Ledger) Offer(id string) (*Offer, bool) {
	for _, o := range l.offers {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (l *Ledger) ForPlayer(playerID string) []*Offer {
	var out []*Offer
	for _, o := range l.offers {
		if o.PlayerID == playerID {
			out = append(out, o)
		}
	}
	return out
}

func (l *Ledger) HasPendingFrom(buyer, playerID string) bool {
	for _, o := range l.offers {
		if o.Buyer == buyer && o.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Commitments sums the wage and transfer fees promised by buyer's pending
// offers, ignoring the offer with id exclude.
func (l *Ledger) Commitments(buyer, exclude string) (wage, fees int64) {
	for _, o := range l.offers {
		if o.Buyer != buyer || o.ID == exclude {
			continue
		}
		wage += o.WageMicros
		fees += o.Fee()
	}
	return wage, fees
}

// Remove drops the given offers from the pending set.
func (l *Ledger) Remove(offers ...*Offer) {
	if len(offers) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(offers))
	for _, o := range offers {
		drop[o.ID] = struct{}{}
	}
	kept := l.offers[:0]
	for _, o := range l.offers {
		if _, ok := drop[o.ID]; !ok {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(l.offers); i++ {
		l.offers[i] = nil
	}
	l.offers = kept
}

// PurgePlayer removes every pending offer for playerID, marking each with
// status, and returns them.
func (l *Ledger) PurgePlayer(playerID string, status OfferStatus) []*Offer {
	purged := l.ForPlayer(playerID)
	for _, o := range purged {
		o.Status = status
	}
	l.Remove(purged...)
	return purged
}

func (l *Ledger) IsRejected(playerID string) bool {
	_, ok := l.rejected[playerID]
	return ok
}

// RecordRejection bumps the attempt counter for playerID and moves the player
// into the rejected set once limit is reached. It returns the new count.
func (l *Ledger) RecordRejection(playerID string, limit int) int {
	l.attempts[playerID]++
	n := l.attempts[playerID]
	if limit > 0 && n >= limit {
		l.rejected[playerID] = struct{}{}
	}
	return n
}

func (l *Ledger) Attempts(playerID string) int {
	return l.attempts[playerID]
}

func (l *Ledger) Defer(task DeferredTask) {
	l.deferred = append(l.deferred, task)
}

// CancelDeferred drops queued tasks for playerID and reports how many were dropped.
func (l *Ledger) CancelDeferred(playerID string) int {
	kept := l.deferred[:0]
	n := 0
	for _, t := range l.deferred {
		if t.PlayerID == playerID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	l.deferred = kept
	return n
}

func (l *Ledger) takeDeferred() []DeferredTask {
	tasks := l.deferred
	l.deferred = nil
	return tasks
}

func (l *Ledger) DeferredCount() int {
	return len(l.deferred)
}
