package market

// Rules holds the squad-composition limits, bidding bounds and offer
// generation odds used by validation, the offer factory and resolution.
type Rules struct {
	MinSquadSize int
	MaxSquadSize int
	RoleFloor    map[Bucket]int
	RoleCap      map[Bucket]int
	MaxListings  int

	MinBidRatio      float64
	MinWageRatio     float64
	MinWageMicros    int64
	MaxWageMicros    int64
	MinContractYears int
	MaxContractYears int

	OfferWindowWeeks int
	RejectionLimit   int

	NoInterestChance float64
	LowBandChance    float64
	FairBandChance   float64
	BandSpread       float64
	MaxWageUplift    float64

	MaxCompetingOffers int
	CompetingLow       float64
	CompetingHigh      float64

	RichTierBonus       float64
	ReplenishFreeAgents bool

	ForeignClubs []ForeignClub
}

func DefaultRules() Rules {
	return Rules{
		MinSquadSize: 16,
		MaxSquadSize: 28,
		RoleFloor: map[Bucket]int{
			BucketGoalkeeper: 2,
			BucketDefender:   5,
			BucketMidfielder: 5,
			BucketAttacker:   3,
		},
		RoleCap: map[Bucket]int{
			BucketGoalkeeper: 4,
			BucketDefender:   10,
			BucketMidfielder: 10,
			BucketAttacker:   7,
		},
		MaxListings: 5,

		MinBidRatio:      0.5,
		MinWageRatio:     0.7,
		MinWageMicros:    1_000,
		MaxWageMicros:    500_000,
		MinContractYears: 1,
		MaxContractYears: 5,

		OfferWindowWeeks: 1,
		RejectionLimit:   3,

		NoInterestChance: 0.10,
		LowBandChance:    0.40,
		FairBandChance:   0.40,
		BandSpread:       0.05,
		MaxWageUplift:    0.20,

		MaxCompetingOffers: 2,
		CompetingLow:       0.85,
		CompetingHigh:      1.20,

		RichTierBonus:       0.10,
		ReplenishFreeAgents: true,

		ForeignClubs: []ForeignClub{
			{Name: "Real Madrid", Tier: TierRich},
			{Name: "Bayern Munich", Tier: TierRich},
			{Name: "Paris SG", Tier: TierRich},
			{Name: "Juventus", Tier: TierStandard},
			{Name: "Porto", Tier: TierStandard},
			{Name: "Ajax", Tier: TierStandard},
			{Name: "Benfica", Tier: TierStandard},
			{Name: "Celtic", Tier: TierStandard},
		},
	}
}
