package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"touchline/internal/market"
)

// MarketFile is the YAML shape of a market rules file. Omitted fields keep
// their default. Money values are in millions.
type MarketFile struct {
	Squad        SquadRules           `yaml:"squad"`
	Bidding      BiddingRules         `yaml:"bidding"`
	Offers       OfferRules           `yaml:"offers"`
	ForeignClubs []market.ForeignClub `yaml:"foreign_clubs"`
	League       []market.TeamSeed    `yaml:"league"`
}

type SquadRules struct {
	MinSize     *int           `yaml:"min_size"`
	MaxSize     *int           `yaml:"max_size"`
	Floors      map[string]int `yaml:"floors"`
	Caps        map[string]int `yaml:"caps"`
	MaxListings *int           `yaml:"max_listings"`
}

type BiddingRules struct {
	MinBidRatio      *float64 `yaml:"min_bid_ratio"`
	MinWageRatio     *float64 `yaml:"min_wage_ratio"`
	MinWage          *float64 `yaml:"min_wage"`
	MaxWage          *float64 `yaml:"max_wage"`
	MinContractYears *int     `yaml:"min_contract_years"`
	MaxContractYears *int     `yaml:"max_contract_years"`
}

type OfferRules struct {
	WindowWeeks         *int     `yaml:"window_weeks"`
	RejectionLimit      *int     `yaml:"rejection_limit"`
	NoInterestChance    *float64 `yaml:"no_interest_chance"`
	LowBandChance       *float64 `yaml:"low_band_chance"`
	FairBandChance      *float64 `yaml:"fair_band_chance"`
	BandSpread          *float64 `yaml:"band_spread"`
	MaxWageUplift       *float64 `yaml:"max_wage_uplift"`
	MaxCompeting        *int     `yaml:"max_competing"`
	CompetingLow        *float64 `yaml:"competing_low"`
	CompetingHigh       *float64 `yaml:"competing_high"`
	RichTierBonus       *float64 `yaml:"rich_tier_bonus"`
	ReplenishFreeAgents *bool    `yaml:"replenish_free_agents"`
}

// LoadMarket reads a rules file and overlays it on market.DefaultRules.
// An empty path returns the defaults and the default league.
func LoadMarket(path string) (market.Rules, []market.TeamSeed, error) {
	rules := market.DefaultRules()
	if path == "" {
		return rules, market.DefaultLeague, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, nil, fmt.Errorf("reading rules file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var f MarketFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return rules, nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := f.apply(&rules); err != nil {
		return rules, nil, err
	}
	league := f.League
	if len(league) == 0 {
		league = market.DefaultLeague
	}
	return rules, league, nil
}

func (f MarketFile) apply(r *market.Rules) error {
	set(&r.MinSquadSize, f.Squad.MinSize)
	set(&r.MaxSquadSize, f.Squad.MaxSize)
	set(&r.MaxListings, f.Squad.MaxListings)
	if err := setBuckets(r.RoleFloor, f.Squad.Floors); err != nil {
		return fmt.Errorf("squad floors: %w", err)
	}
	if err := setBuckets(r.RoleCap, f.Squad.Caps); err != nil {
		return fmt.Errorf("squad caps: %w", err)
	}

	set(&r.MinBidRatio, f.Bidding.MinBidRatio)
	set(&r.MinWageRatio, f.Bidding.MinWageRatio)
	if f.Bidding.MinWage != nil {
		r.MinWageMicros = market.MillionsToMicros(*f.Bidding.MinWage)
	}
	if f.Bidding.MaxWage != nil {
		r.MaxWageMicros = market.MillionsToMicros(*f.Bidding.MaxWage)
	}
	set(&r.MinContractYears, f.Bidding.MinContractYears)
	set(&r.MaxContractYears, f.Bidding.MaxContractYears)

	set(&r.OfferWindowWeeks, f.Offers.WindowWeeks)
	set(&r.RejectionLimit, f.Offers.RejectionLimit)
	set(&r.NoInterestChance, f.Offers.NoInterestChance)
	set(&r.LowBandChance, f.Offers.LowBandChance)
	set(&r.FairBandChance, f.Offers.FairBandChance)
	set(&r.BandSpread, f.Offers.BandSpread)
	set(&r.MaxWageUplift, f.Offers.MaxWageUplift)
	set(&r.MaxCompetingOffers, f.Offers.MaxCompeting)
	set(&r.CompetingLow, f.Offers.CompetingLow)
	set(&r.CompetingHigh, f.Offers.CompetingHigh)
	set(&r.RichTierBonus, f.Offers.RichTierBonus)
	set(&r.ReplenishFreeAgents, f.Offers.ReplenishFreeAgents)
	if len(f.ForeignClubs) > 0 {
		r.ForeignClubs = f.ForeignClubs
	}
	return validate(r)
}

func validate(r *market.Rules) error {
	switch {
	case r.MinSquadSize < 1 || r.MinSquadSize > r.MaxSquadSize:
		return fmt.Errorf("squad size range %d-%d is invalid", r.MinSquadSize, r.MaxSquadSize)
	case r.MaxListings < 0:
		return fmt.Errorf("max_listings must not be negative")
	case r.MinContractYears < 1 || r.MinContractYears > r.MaxContractYears:
		return fmt.Errorf("contract range %d-%d is invalid", r.MinContractYears, r.MaxContractYears)
	case r.MinWageMicros < 0 || r.MinWageMicros > r.MaxWageMicros:
		return fmt.Errorf("min wage above max wage")
	case r.MinBidRatio < 0 || r.MinWageRatio < 0:
		return fmt.Errorf("bid ratios must not be negative")
	case r.OfferWindowWeeks < 1:
		return fmt.Errorf("window_weeks must be at least 1")
	case r.RejectionLimit < 1:
		return fmt.Errorf("rejection_limit must be at least 1")
	case r.NoInterestChance < 0 || r.LowBandChance < 0 || r.FairBandChance < 0:
		return fmt.Errorf("interest band chances must not be negative")
	case r.NoInterestChance+r.LowBandChance+r.FairBandChance > 1:
		return fmt.Errorf("interest band chances add up to more than 1")
	case r.BandSpread < 0 || r.MaxWageUplift < 0 || r.RichTierBonus < 0:
		return fmt.Errorf("band_spread, max_wage_uplift and rich_tier_bonus must not be negative")
	case r.MaxCompetingOffers < 0:
		return fmt.Errorf("max_competing must not be negative")
	case r.CompetingLow < 0 || r.CompetingLow > r.CompetingHigh:
		return fmt.Errorf("competing_low above competing_high")
	}
	return nil
}

func setBuckets(dst map[market.Bucket]int, src map[string]int) error {
	for name, n := range src {
		b := market.Bucket(name)
		known := false
		for _, k := range market.Buckets {
			if k == b {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown bucket %q", name)
		}
		if n < 0 {
			return fmt.Errorf("bucket %q must not be negative", name)
		}
		dst[b] = n
	}
	return nil
}

// set overwrites dst when the file named the field, including explicit zeros.
func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
