package market

import (
	"fmt"

	"github.com/google/uuid"
)

// settleLocked moves the player named by o to its buyer. Every precondition
// is checked before the first mutation, so a failed settlement leaves the
// world untouched.
func (s *Service) settleLocked(o *Offer) (TransferRecord, error) {
	p, sellerTeam, ok := s.world.Locate(o.PlayerID)
	if !ok {
		return TransferRecord{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, o.PlayerID)
	}
	buyer, inLeague := s.world.Team(o.Buyer)
	if !inLeague {
		if _, foreign := s.foreignClub(o.Buyer); !foreign {
			return TransferRecord{}, fmt.Errorf("%w: %s", ErrTeamNotFound, o.Buyer)
		}
	}

	switch d := o.Deal.(type) {
	case TransferDeal:
		if sellerTeam == nil || sellerTeam.Name != d.Seller {
			return TransferRecord{}, fmt.Errorf("%w: %s no longer plays for %s", ErrNotTransferable, p.Name, d.Seller)
		}
	case FreeAgentDeal:
		if sellerTeam != nil {
			return TransferRecord{}, fmt.Errorf("%w: %s signed for %s", ErrNotFreeAgent, p.Name, sellerTeam.Name)
		}
	default:
		return TransferRecord{}, fmt.Errorf("offer %s has no deal", o.ID)
	}
	if inLeague {
		if err := checkAffordable(s.rules, s.ledger, buyer, p, o); err != nil {
			return TransferRecord{}, fmt.Errorf("%w: %w", ErrAffordabilityDrift, err)
		}
	}

	from := FreeAgentClub
	switch d := o.Deal.(type) {
	case TransferDeal:
		sellerTeam.removePlayer(p.ID)
		sellerTeam.Finances.TransferBudget += d.FeeMicros
		if inLeague {
			buyer.Finances.TransferBudget -= d.FeeMicros
		}
		from = sellerTeam.Name
	case FreeAgentDeal:
		s.world.removeFreeAgent(p.ID)
	}

	p.Listed = false
	p.Club = o.Buyer
	p.WageMicros = o.WageMicros
	p.ContractYears = o.ContractYears
	p.SquadNumber = 0
	if inLeague {
		p.SquadNumber = buyer.nextSquadNumber()
		buyer.Roster = append(buyer.Roster, p)
	}

	o.Status = StatusAccepted
	s.ledger.Remove(o)
	s.ledger.CancelDeferred(p.ID)
	others := s.ledger.PurgePlayer(p.ID, StatusRejected)

	rec := TransferRecord{
		ID:            uuid.NewString(),
		Season:        s.world.Season,
		Week:          s.clock.CurrentWeek(),
		PlayerID:      p.ID,
		PlayerName:    p.Name,
		From:          from,
		To:            o.Buyer,
		FeeMicros:     o.Fee(),
		WageMicros:    o.WageMicros,
		ContractYears: o.ContractYears,
		Kind:          o.Kind(),
		RecordedAt:    s.now().UTC(),
	}
	s.history = append(s.history, rec)
	s.out.records = append(s.out.records, rec)

	if o.Kind() == KindFreeAgent && s.rules.ReplenishFreeAgents && s.gen != nil {
		fa := s.gen.FreeAgent(p.PrimaryRole())
		s.world.FreeAgents = append(s.world.FreeAgents, fa)
		s.log.Debug("free agent pool replenished", "player_id", fa.ID, "role", p.PrimaryRole())
	}

	s.log.Info("transfer completed",
		"transfer_id", rec.ID,
		"player_id", p.ID,
		"from", rec.From,
		"to", rec.To,
		"fee", FormatMillions(rec.FeeMicros),
		"purged", len(others),
	)
	switch {
	case s.isUser(rec.To):
		s.notify("%s joined %s from %s (fee %s, wage %s, %d years).",
			p.Name, rec.To, rec.From, FormatMillions(rec.FeeMicros), FormatMillions(rec.WageMicros), rec.ContractYears)
	case s.isUser(rec.From):
		s.notify("%s left for %s for %s.", p.Name, rec.To, FormatMillions(rec.FeeMicros))
	}
	return rec, nil
}
