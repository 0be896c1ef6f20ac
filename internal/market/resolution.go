package market

import (
	"context"
	"fmt"
)

// PlayerResolution is the outcome of one player's offers in a weekly pass.
type PlayerResolution struct {
	PlayerID    string          `json:"player_id"`
	PlayerName  string          `json:"player_name"`
	Winner      *Offer          `json:"winner,omitempty"`
	Score       float64         `json:"score"`
	Probability float64         `json:"probability"`
	Accepted    bool            `json:"accepted"`
	Transfer    *TransferRecord `json:"transfer,omitempty"`
	Offers      []Offer         `json:"offers"`
	Error       string          `json:"error,omitempty"`
}

type WeekReport struct {
	Week        int                `json:"week"`
	Generated   int                `json:"generated"`
	Resolutions []PlayerResolution `json:"resolutions"`
	Expired     []Offer            `json:"expired"`
}

// ResolveWeek runs the weekly resolution pass for the clock's current week.
// Queued interest is generated first, then every due offer group is decided
// and stale offers expire. A failure on one player never stops the pass.
func (s *Service) ResolveWeek(ctx context.Context) WeekReport {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	week := s.clock.CurrentWeek()
	report := WeekReport{Week: week}
	report.Generated = s.drainDeferredLocked()

	groups := make(map[string][]*Offer)
	var order []string
	for _, o := range s.ledger.Pending() {
		if o.Deadline != week || o.suspended() {
			continue
		}
		if _, seen := groups[o.PlayerID]; !seen {
			order = append(order, o.PlayerID)
		}
		groups[o.PlayerID] = append(groups[o.PlayerID], o)
	}
	for _, playerID := range order {
		report.Resolutions = append(report.Resolutions, s.resolvePlayer(playerID, groups[playerID]))
	}

	var expired []*Offer
	for _, o := range s.ledger.Pending() {
		if o.Deadline < week {
			o.Status = StatusExpired
			expired = append(expired, o)
		}
	}
	s.ledger.Remove(expired...)
	for _, o := range expired {
		report.Expired = append(report.Expired, *o)
		if s.isUser(o.Buyer) || s.isUser(o.Seller()) {
			s.notify("Offer from %s for player %s expired.", o.Buyer, s.playerName(o.PlayerID))
		}
	}

	s.log.Info("week resolved",
		"week", week,
		"generated", report.Generated,
		"players", len(report.Resolutions),
		"expired", len(expired),
	)
	s.markDirty()
	return report
}

func (s *Service) resolvePlayer(playerID string, group []*Offer) (res PlayerResolution) {
	res.PlayerID = playerID
	defer func() {
		res.Offers = make([]Offer, 0, len(group))
		for _, o := range group {
			res.Offers = append(res.Offers, *o)
		}
	}()

	p, _, ok := s.world.Locate(playerID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		s.log.Warn("resolve offers", "player_id", playerID, "err", err)
		s.rejectAll(group)
		res.Error = err.Error()
		return res
	}
	res.PlayerName = p.Name

	best, score := bestOffer(group, s.tierOf, s.rules.RichTierBonus)
	prob := AcceptanceProbability(best, p)
	res.Score, res.Probability = score, prob

	if s.rand.Float64() < prob {
		rec, err := s.settleLocked(best)
		if err != nil {
			s.log.Warn("settlement failed", "offer_id", best.ID, "player_id", p.ID, "err", err)
			s.rejectAll(group)
			if s.isUser(best.Buyer) {
				s.notify("Deal for %s fell through: %v", p.Name, err)
			}
			res.Error = err.Error()
		} else {
			res.Accepted = true
			res.Transfer = &rec
		}
		cp := *best
		res.Winner = &cp
		return res
	}

	s.rejectAll(group)
	cp := *best
	res.Winner = &cp
	n := s.ledger.RecordRejection(p.ID, s.rules.RejectionLimit)
	s.log.Info("offers rejected", "player_id", p.ID, "attempts", n, "probability", prob)
	for _, o := range group {
		if s.isUser(o.Buyer) {
			s.notify("%s turned down the offer from %s.", p.Name, o.Buyer)
		}
	}
	if s.ledger.IsRejected(p.ID) {
		s.log.Info("player closed to new interest", "player_id", p.ID)
	}
	return res
}

func (s *Service) rejectAll(group []*Offer) {
	for _, o := range group {
		if o.Status == StatusPending {
			o.Status = StatusRejected
		}
	}
	s.ledger.Remove(group...)
}

// AcceptIncomingOffer settles an offer that awaits the human club's decision.
func (s *Service) AcceptIncomingOffer(ctx context.Context, offerID string) (TransferRecord, error) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.decisionOffer(offerID)
	if err != nil {
		return TransferRecord{}, err
	}
	rec, err := s.settleLocked(o)
	if err != nil {
		o.Status = StatusRejected
		s.ledger.Remove(o)
		s.log.Warn("incoming offer could not settle", "offer_id", o.ID, "err", err)
		s.notify("Offer from %s could not be completed: %v", o.Buyer, err)
		s.markDirty()
		return TransferRecord{}, err
	}
	s.markDirty()
	return rec, nil
}

// RejectIncomingOffer turns down an offer that awaits the human club's decision.
func (s *Service) RejectIncomingOffer(ctx context.Context, offerID string) error {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.decisionOffer(offerID)
	if err != nil {
		return err
	}
	o.Status = StatusRejected
	s.ledger.Remove(o)
	s.log.Info("incoming offer rejected", "offer_id", o.ID, "buyer", o.Buyer, "player_id", o.PlayerID)
	s.markDirty()
	return nil
}

func (s *Service) decisionOffer(offerID string) (*Offer, error) {
	o, ok := s.ledger.Offer(offerID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
		s.log.Warn("incoming offer decision", "offer_id", offerID, "err", err)
		return nil, err
	}
	if !o.suspended() {
		return nil, fmt.Errorf("%w: %s", ErrNoDecisionRequired, offerID)
	}
	return o, nil
}

func (s *Service) playerName(playerID string) string {
	if p, _, ok := s.world.Locate(playerID); ok {
		return p.Name
	}
	return playerID
}
