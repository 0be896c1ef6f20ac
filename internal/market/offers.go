package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type TransferOfferInput struct {
	Buyer         string
	PlayerID      string
	FeeMicros     int64
	WageMicros    int64
	ContractYears int
}

type FreeAgentOfferInput struct {
	Buyer         string
	PlayerID      string
	WageMicros    int64
	ContractYears int
}

const (
	lowBand  = 0.5
	fairBand = 1.0
	highBand = 2.0
)

// SubmitTransferOffer validates a bid for a player on another club's roster
// and records it. Bids for listed players draw competing offers from other
// league clubs. Bids for a player of the human club wait for its decision.
func (s *Service) SubmitTransferOffer(ctx context.Context, in TransferOfferInput) (Offer, error) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer, err := s.team(in.Buyer)
	if err != nil {
		s.log.Warn("submit transfer offer", "buyer", in.Buyer, "err", err)
		return Offer{}, err
	}
	p, seller, ok := s.world.Locate(in.PlayerID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrPlayerNotFound, in.PlayerID)
		s.log.Warn("submit transfer offer", "player_id", in.PlayerID, "err", err)
		return Offer{}, err
	}
	if seller == nil {
		return Offer{}, denied(ErrNotTransferable, "%s is a free agent", p.Name)
	}

	bid := Bid{Kind: KindTransfer, FeeMicros: in.FeeMicros, WageMicros: in.WageMicros, ContractYears: in.ContractYears}
	if err := CanSubmitOffer(s.rules, s.ledger, buyer, p, bid); err != nil {
		return Offer{}, err
	}

	week := s.clock.CurrentWeek()
	o := &Offer{
		ID:               uuid.NewString(),
		PlayerID:         p.ID,
		Buyer:            buyer.Name,
		Deal:             TransferDeal{Seller: seller.Name, FeeMicros: in.FeeMicros},
		WageMicros:       in.WageMicros,
		ContractYears:    in.ContractYears,
		Deadline:         week + s.rules.OfferWindowWeeks,
		Status:           StatusPending,
		Origin:           OriginUser,
		Incoming:         seller.Controlled,
		RequiresDecision: seller.Controlled,
		CreatedWeek:      week,
	}
	s.ledger.Append(o)

	competing := 0
	if p.Listed {
		competing = len(s.generateCompeting(o, p, seller))
	}
	s.log.Info("transfer offer submitted",
		"offer_id", o.ID,
		"buyer", o.Buyer,
		"seller", seller.Name,
		"player_id", p.ID,
		"fee", FormatMillions(in.FeeMicros),
		"competing", competing,
	)
	switch {
	case seller.Controlled:
		s.notify("%s bid %s for %s (wage %s, %d years). Accept or reject before week %d.",
			buyer.Name, FormatMillions(in.FeeMicros), p.Name, FormatMillions(in.WageMicros), in.ContractYears, o.Deadline)
		if competing > 0 {
			s.notify("%d more club(s) also bid for %s.", competing, p.Name)
		}
	case competing > 0 && s.isUser(buyer.Name):
		s.notify("%d other club(s) also bid for %s.", competing, p.Name)
	}
	s.markDirty()
	return *o, nil
}

// SubmitFreeAgentOffer records a wage-only offer for a player in the
// free-agent pool. Every such offer draws competing offers.
func (s *Service) SubmitFreeAgentOffer(ctx context.Context, in FreeAgentOfferInput) (Offer, error) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer, err := s.team(in.Buyer)
	if err != nil {
		s.log.Warn("submit free agent offer", "buyer", in.Buyer, "err", err)
		return Offer{}, err
	}
	p, club, ok := s.world.Locate(in.PlayerID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrPlayerNotFound, in.PlayerID)
		s.log.Warn("submit free agent offer", "player_id", in.PlayerID, "err", err)
		return Offer{}, err
	}
	if club != nil {
		return Offer{}, denied(ErrNotFreeAgent, "%s plays for %s", p.Name, club.Name)
	}

	bid := Bid{Kind: KindFreeAgent, WageMicros: in.WageMicros, ContractYears: in.ContractYears}
	if err := CanSubmitOffer(s.rules, s.ledger, buyer, p, bid); err != nil {
		return Offer{}, err
	}

	week := s.clock.CurrentWeek()
	o := &Offer{
		ID:            uuid.NewString(),
		PlayerID:      p.ID,
		Buyer:         buyer.Name,
		Deal:          FreeAgentDeal{},
		WageMicros:    in.WageMicros,
		ContractYears: in.ContractYears,
		Deadline:      week + s.rules.OfferWindowWeeks,
		Status:        StatusPending,
		Origin:        OriginUser,
		CreatedWeek:   week,
	}
	s.ledger.Append(o)
	competing := len(s.generateCompeting(o, p, nil))

	s.log.Info("free agent offer submitted",
		"offer_id", o.ID,
		"buyer", o.Buyer,
		"player_id", p.ID,
		"wage", FormatMillions(in.WageMicros),
		"competing", competing,
	)
	if competing > 0 && s.isUser(buyer.Name) {
		s.notify("%d other club(s) are also chasing %s.", competing, p.Name)
	}
	s.markDirty()
	return *o, nil
}

// CancelOutgoingOffer withdraws a pending offer made by team.
func (s *Service) CancelOutgoingOffer(ctx context.Context, teamName, offerID string) error {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.ledger.Offer(offerID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
		s.log.Warn("cancel outgoing offer", "offer_id", offerID, "err", err)
		return err
	}
	if o.Buyer != teamName {
		return fmt.Errorf("%w: %s made by %s", ErrNotOwnOffer, offerID, o.Buyer)
	}
	o.Status = StatusRejected
	s.ledger.Remove(o)
	s.log.Info("offer cancelled", "offer_id", o.ID, "buyer", o.Buyer, "player_id", o.PlayerID)
	s.markDirty()
	return nil
}

// DrainDeferred runs queued interest generation now instead of waiting for
// the next resolution pass. It returns the number of offers generated.
func (s *Service) DrainDeferred(ctx context.Context) int {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.drainDeferredLocked()
	s.markDirty()
	return n
}

func (s *Service) drainDeferredLocked() int {
	n := 0
	for _, task := range s.ledger.takeDeferred() {
		if s.generateInterest(task) {
			n++
		}
	}
	return n
}

// generateInterest draws the foreign market's reaction to a listing: either
// no interest, which takes the player off the list, or exactly one offer in
// the low, fair or high band.
func (s *Service) generateInterest(task DeferredTask) bool {
	team, p, err := s.rosterPlayer(task.Team, task.PlayerID)
	if err != nil {
		s.log.Warn("deferred interest dropped", "team", task.Team, "player_id", task.PlayerID, "err", err)
		return false
	}
	if !p.Listed {
		return false
	}
	if s.ledger.IsRejected(p.ID) {
		s.log.Debug("no interest for rejected player", "player_id", p.ID)
		return false
	}

	r := s.rand.Float64()
	if r < s.rules.NoInterestChance || len(s.rules.ForeignClubs) == 0 {
		s.unlistLocked(team, p)
		s.log.Info("no interest, player unlisted", "team", team.Name, "player_id", p.ID)
		if team.Controlled {
			s.notify("No clubs showed interest in %s. They have been taken off the transfer list.", p.Name)
		}
		return false
	}

	band := highBand
	switch {
	case r < s.rules.NoInterestChance+s.rules.LowBandChance:
		band = lowBand
	case r < s.rules.NoInterestChance+s.rules.LowBandChance+s.rules.FairBandChance:
		band = fairBand
	}
	spread := 1 + (s.rand.Float64()*2-1)*s.rules.BandSpread
	fee := scaleMicros(p.ValueMicros, band*spread)
	wage := scaleMicros(p.WageMicros, 1+s.rand.Float64()*s.rules.MaxWageUplift)
	years := 2 + s.rand.Intn(3)
	club := s.rules.ForeignClubs[s.rand.Intn(len(s.rules.ForeignClubs))]

	week := s.clock.CurrentWeek()
	deadline := task.Deadline
	if deadline < week {
		deadline = week
	}
	o := &Offer{
		ID:               uuid.NewString(),
		PlayerID:         p.ID,
		Buyer:            club.Name,
		Deal:             TransferDeal{Seller: team.Name, FeeMicros: fee},
		WageMicros:       wage,
		ContractYears:    years,
		Deadline:         deadline,
		Status:           StatusPending,
		Origin:           OriginExternal,
		Incoming:         team.Controlled,
		RequiresDecision: team.Controlled,
		CreatedWeek:      week,
	}
	s.ledger.Append(o)

	s.log.Info("foreign offer generated",
		"offer_id", o.ID,
		"buyer", club.Name,
		"player_id", p.ID,
		"fee", FormatMillions(fee),
		"band", band,
	)
	if team.Controlled {
		s.notify("%s offer %s for %s (wage %s, %d years). Accept or reject before week %d.",
			club.Name, FormatMillions(fee), p.Name, FormatMillions(wage), years, deadline)
	}
	return true
}

// generateCompeting adds up to MaxCompetingOffers rival bids from AI league
// clubs that pass the same validation as a human bid.
func (s *Service) generateCompeting(trigger *Offer, p *Player, seller *Team) []*Offer {
	if s.ledger.IsRejected(p.ID) || s.rules.MaxCompetingOffers <= 0 {
		return nil
	}
	want := s.rand.Intn(s.rules.MaxCompetingOffers + 1)
	if want == 0 {
		return nil
	}

	candidates := make([]*Team, 0, len(s.world.Teams))
	for _, t := range s.world.Teams {
		if t.Controlled || t.Name == trigger.Buyer || (seller != nil && t.Name == seller.Name) {
			continue
		}
		candidates = append(candidates, t)
	}
	for i := len(candidates) - 1; i > 0; i-- {
		j := s.rand.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	incoming := seller != nil && seller.Controlled
	var out []*Offer
	for _, t := range candidates {
		if len(out) == want {
			break
		}
		bid := Bid{
			Kind:          trigger.Kind(),
			WageMicros:    s.vary(trigger.WageMicros),
			ContractYears: 2 + s.rand.Intn(3),
		}
		if bid.Kind == KindTransfer {
			bid.FeeMicros = s.vary(trigger.Fee())
		}
		if err := CanSubmitOffer(s.rules, s.ledger, t, p, bid); err != nil {
			s.log.Debug("competitor not eligible", "team", t.Name, "player_id", p.ID, "err", err)
			continue
		}
		var deal Deal = FreeAgentDeal{}
		if bid.Kind == KindTransfer {
			deal = TransferDeal{Seller: seller.Name, FeeMicros: bid.FeeMicros}
		}
		o := &Offer{
			ID:               uuid.NewString(),
			PlayerID:         p.ID,
			Buyer:            t.Name,
			Deal:             deal,
			WageMicros:       bid.WageMicros,
			ContractYears:    bid.ContractYears,
			Deadline:         trigger.Deadline,
			Status:           StatusPending,
			Origin:           OriginCompeting,
			Incoming:         incoming,
			RequiresDecision: incoming,
			CreatedWeek:      trigger.CreatedWeek,
		}
		s.ledger.Append(o)
		out = append(out, o)
	}
	return out
}

func (s *Service) vary(micros int64) int64 {
	lo, hi := s.rules.CompetingLow, s.rules.CompetingHigh
	return scaleMicros(micros, lo+s.rand.Float64()*(hi-lo))
}
