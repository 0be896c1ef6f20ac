package market

const (
	minAcceptance  = 0.10
	maxAcceptance  = 0.90
	baseAcceptance = 0.50
)

// OfferScore ranks competing offers for one player. Money terms are in
// millions so fee, wage and contract length weigh on comparable scales.
func OfferScore(o *Offer, buyerTier Tier, richBonus float64) float64 {
	wage := MicrosToMillions(o.WageMicros)
	years := float64(o.ContractYears)
	var score float64
	switch d := o.Deal.(type) {
	case TransferDeal:
		score = 0.4 * MicrosToMillions(d.FeeMicros)
	case FreeAgentDeal:
		score = 0.6 * wage
	}
	score += 0.3*wage*years + 0.2*years
	if buyerTier == TierRich {
		score *= 1 + richBonus
	}
	return score
}

// bestOffer picks the highest-scoring offer; the first one seen wins ties.
func bestOffer(offers []*Offer, tierOf func(string) Tier, richBonus float64) (*Offer, float64) {
	var best *Offer
	bestScore := 0.0
	for _, o := range offers {
		s := OfferScore(o, tierOf(o.Buyer), richBonus)
		if best == nil || s > bestScore {
			best, bestScore = o, s
		}
	}
	return best, bestScore
}

// AcceptanceProbability estimates how likely p (and, for transfers, the
// selling club) is to take the offer. The result is always within [0.10, 0.90].
func AcceptanceProbability(o *Offer, p *Player) float64 {
	prob := baseAcceptance
	_, free := o.Deal.(FreeAgentDeal)

	wageRatio := 1.2
	if p.WageMicros > 0 {
		wageRatio = float64(o.WageMicros) / float64(p.WageMicros)
	}
	prob += wageAdjustment(wageRatio, free)

	if d, ok := o.Deal.(TransferDeal); ok && p.ValueMicros > 0 {
		prob += feeAdjustment(float64(d.FeeMicros) / float64(p.ValueMicros))
	}

	switch {
	case o.ContractYears >= 4:
		prob += pick(free, 0.15, 0.10)
	case o.ContractYears >= 3:
		prob += pick(free, 0.10, 0.05)
	case o.ContractYears >= 2 && free:
		prob += 0.05
	}

	if p.Age >= 30 {
		prob += 0.05
		if free {
			prob += 0.05
		}
	}
	return clamp(prob, minAcceptance, maxAcceptance)
}

func wageAdjustment(ratio float64, free bool) float64 {
	switch {
	case ratio >= 1.2:
		return pick(free, 0.30, 0.15)
	case ratio >= 1.1:
		return pick(free, 0.20, 0.10)
	case ratio >= 1.0:
		return pick(free, 0.10, 0.05)
	case ratio < 0.90:
		return pick(free, -0.30, -0.15)
	case ratio < 0.95:
		return pick(free, -0.20, -0.10)
	}
	return 0
}

func feeAdjustment(ratio float64) float64 {
	switch {
	case ratio >= 1.3:
		return 0.20
	case ratio >= 1.15:
		return 0.15
	case ratio >= 1.0:
		return 0.10
	case ratio < 0.8:
		return -0.20
	case ratio < 0.9:
		return -0.15
	}
	return 0
}

func pick(free bool, freeAgent, transfer float64) float64 {
	if free {
		return freeAgent
	}
	return transfer
}
