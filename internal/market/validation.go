package market

// Bid is the package a buyer proposes before it becomes an Offer.
type Bid struct {
	Kind          OfferKind
	FeeMicros     int64
	WageMicros    int64
	ContractYears int
}

// CanList checks whether team may put p on its public sale list. Players
// already listed count as gone when checking squad size and role floors.
func CanList(r Rules, team *Team, p *Player) error {
	if team.Player(p.ID) == nil {
		return denied(ErrNotListedByTeam, "%s is not at %s", p.Name, team.Name)
	}
	if team.ListedCount() >= r.MaxListings {
		return denied(ErrTooManyListings, "%s already lists %d players", team.Name, r.MaxListings)
	}
	remaining := len(team.Roster) - team.ListedCount() - 1
	if remaining < r.MinSquadSize {
		return denied(ErrSquadTooSmall, "%s would keep %d players, minimum is %d", team.Name, remaining, r.MinSquadSize)
	}
	b, err := p.Bucket()
	if err != nil {
		return err
	}
	left := team.BucketCount(b, true) - 1
	if floor := r.RoleFloor[b]; left < floor {
		return denied(ErrRoleFloor, "%s would keep %d %ss, minimum is %d", team.Name, left, b, floor)
	}
	return nil
}

// CanSubmitOffer checks whether team may bid for p with the given package
// against its budgets, pending commitments and squad composition.
func CanSubmitOffer(r Rules, l *Ledger, team *Team, p *Player, bid Bid) error {
	if team.Player(p.ID) != nil {
		return denied(ErrOwnPlayer, "%s already plays for %s", p.Name, team.Name)
	}
	if l.HasPendingFrom(team.Name, p.ID) {
		return denied(ErrDuplicateOffer, "%s already bid for %s", team.Name, p.Name)
	}
	if bid.ContractYears < r.MinContractYears || bid.ContractYears > r.MaxContractYears {
		return denied(ErrInvalidContract, "%d years, allowed %d-%d", bid.ContractYears, r.MinContractYears, r.MaxContractYears)
	}
	if err := checkBudgets(r, l, team, bid, ""); err != nil {
		return err
	}
	if bid.Kind == KindTransfer {
		minFee := scaleMicros(p.ValueMicros, r.MinBidRatio)
		if bid.FeeMicros < minFee {
			return denied(ErrBidTooLow, "fee %s below minimum %s", FormatMillions(bid.FeeMicros), FormatMillions(minFee))
		}
	}
	if bid.WageMicros < r.MinWageMicros || bid.WageMicros > r.MaxWageMicros {
		return denied(ErrWageOutOfRange, "wage %s outside %s-%s", FormatMillions(bid.WageMicros), FormatMillions(r.MinWageMicros), FormatMillions(r.MaxWageMicros))
	}
	if minWage := scaleMicros(p.WageMicros, r.MinWageRatio); bid.WageMicros < minWage {
		return denied(ErrWageOutOfRange, "wage %s below %s asked by %s", FormatMillions(bid.WageMicros), FormatMillions(minWage), p.Name)
	}
	return checkSquadRoom(r, team, p)
}

// checkAffordable re-runs the budget and squad checks for an offer about to
// settle, leaving the offer's own commitment out of the pending totals.
func checkAffordable(r Rules, l *Ledger, team *Team, p *Player, o *Offer) error {
	bid := Bid{Kind: o.Kind(), FeeMicros: o.Fee(), WageMicros: o.WageMicros, ContractYears: o.ContractYears}
	if err := checkBudgets(r, l, team, bid, o.ID); err != nil {
		return err
	}
	return checkSquadRoom(r, team, p)
}

func checkBudgets(r Rules, l *Ledger, team *Team, bid Bid, exclude string) error {
	fin := team.Finances
	if fin.TransferBudget < 0 {
		return denied(ErrBudgetOverdrawn, "%s transfer budget is %s", team.Name, FormatMillions(fin.TransferBudget))
	}
	pendingWage, pendingFees := l.Commitments(team.Name, exclude)
	if load := bid.WageMicros + team.WageLoad() + pendingWage; load > fin.WagesBudget {
		return denied(ErrWageBudget, "%s wage load would be %s of %s", team.Name, FormatMillions(load), FormatMillions(fin.WagesBudget))
	}
	if bid.Kind == KindTransfer {
		if spend := bid.FeeMicros + pendingFees; spend > fin.TransferBudget {
			return denied(ErrTransferBudget, "%s would commit %s of %s", team.Name, FormatMillions(spend), FormatMillions(fin.TransferBudget))
		}
	}
	return nil
}

func checkSquadRoom(r Rules, team *Team, p *Player) error {
	b, err := p.Bucket()
	if err != nil {
		return err
	}
	if limit, ok := r.RoleCap[b]; ok && team.BucketCount(b, false) >= limit {
		return denied(ErrRoleCapReached, "%s already has %d %ss", team.Name, limit, b)
	}
	if len(team.Roster) >= r.MaxSquadSize {
		return denied(ErrSquadFull, "%s has %d players", team.Name, len(team.Roster))
	}
	return nil
}
