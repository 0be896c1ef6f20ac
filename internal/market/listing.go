package market

import "context"

// Listing is a sale entry joined with the listed player.
type Listing struct {
	SaleEntry
	Player Player `json:"player"`
	Offers int    `json:"pending_offers"`
}

// ListForSale puts a roster player on team's public sale list and queues
// foreign interest for the next resolution pass. Listing a player that is
// already listed is a no-op.
func (s *Service) ListForSale(ctx context.Context, teamName, playerID string) error {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	team, p, err := s.rosterPlayer(teamName, playerID)
	if err != nil {
		s.log.Warn("list for sale", "team", teamName, "player_id", playerID, "err", err)
		return err
	}
	if p.Listed {
		return nil
	}
	if err := CanList(s.rules, team, p); err != nil {
		return err
	}

	week := s.clock.CurrentWeek()
	p.Listed = true
	team.Finances.PlayersForSale = append(team.Finances.PlayersForSale, SaleEntry{
		PlayerID:     p.ID,
		AskingMicros: p.ValueMicros,
		ListedWeek:   week,
	})
	s.ledger.Defer(DeferredTask{PlayerID: p.ID, Team: team.Name, Deadline: week + s.rules.OfferWindowWeeks})

	s.log.Info("player listed", "team", team.Name, "player_id", p.ID, "week", week)
	s.markDirty()
	return nil
}

// Unlist takes a player off the sale list, cancels queued interest and
// rejects every pending offer for the player. Calling it on a player that is
// not listed leaves state unchanged.
func (s *Service) Unlist(ctx context.Context, teamName, playerID string) error {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	team, p, err := s.rosterPlayer(teamName, playerID)
	if err != nil {
		s.log.Warn("unlist", "team", teamName, "player_id", playerID, "err", err)
		return err
	}
	purged := s.unlistLocked(team, p)
	s.log.Info("player unlisted", "team", team.Name, "player_id", p.ID, "purged", len(purged))
	s.markDirty()
	return nil
}

func (s *Service) unlistLocked(team *Team, p *Player) []*Offer {
	p.Listed = false
	team.removeSaleEntry(p.ID)
	s.ledger.CancelDeferred(p.ID)
	return s.ledger.PurgePlayer(p.ID, StatusRejected)
}

func (s *Service) ListingsForTeam(teamName string) ([]Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, err := s.team(teamName)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(team.Finances.PlayersForSale))
	for _, e := range team.Finances.PlayersForSale {
		p := team.Player(e.PlayerID)
		if p == nil {
			s.log.Warn("sale entry without roster player", "team", team.Name, "player_id", e.PlayerID)
			continue
		}
		out = append(out, Listing{
			SaleEntry: e,
			Player:    copyPlayer(p),
			Offers:    len(s.ledger.ForPlayer(p.ID)),
		})
	}
	return out, nil
}
