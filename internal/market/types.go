package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Bucket string

const (
	BucketGoalkeeper Bucket = "goalkeeper"
	BucketDefender   Bucket = "defender"
	BucketMidfielder Bucket = "midfielder"
	BucketAttacker   Bucket = "attacker"
)

var Buckets = []Bucket{BucketGoalkeeper, BucketDefender, BucketMidfielder, BucketAttacker}

var roleBuckets = map[string]Bucket{
	"GK":  BucketGoalkeeper,
	"CB":  BucketDefender,
	"LB":  BucketDefender,
	"RB":  BucketDefender,
	"LWB": BucketDefender,
	"RWB": BucketDefender,
	"DM":  BucketMidfielder,
	"CM":  BucketMidfielder,
	"AM":  BucketMidfielder,
	"LM":  BucketMidfielder,
	"RM":  BucketMidfielder,
	"LW":  BucketAttacker,
	"RW":  BucketAttacker,
	"CF":  BucketAttacker,
	"ST":  BucketAttacker,
}

// BucketOf maps a playable role such as "CB" or "ST" onto its squad bucket.
func BucketOf(role string) (Bucket, error) {
	b, ok := roleBuckets[strings.ToUpper(strings.TrimSpace(role))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return b, nil
}

type Attributes struct {
	Speed   int `json:"speed"`
	Pass    int `json:"pass"`
	Shot    int `json:"shot"`
	Defense int `json:"defense"`
	Dribble int `json:"dribble"`
	Tackle  int `json:"tackle"`
}

type Player struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Roles         []string   `json:"roles"`
	Age           int        `json:"age"`
	Attributes    Attributes `json:"attributes"`
	Rating        int        `json:"rating"`
	ValueMicros   int64      `json:"value_micros"`
	WageMicros    int64      `json:"wage_micros"`
	ContractYears int        `json:"contract_years"`
	Club          string     `json:"club"`
	Listed        bool       `json:"listed"`
	SquadNumber   int        `json:"squad_number,omitempty"`
}

func (p *Player) PrimaryRole() string {
	if len(p.Roles) == 0 {
		return ""
	}
	return p.Roles[0]
}

func (p *Player) Bucket() (Bucket, error) {
	return BucketOf(p.PrimaryRole())
}

// RateOverall derives the role-weighted overall rating from the attribute set.
func RateOverall(role string, a Attributes) int {
	b, err := BucketOf(role)
	if err != nil {
		b = BucketMidfielder
	}
	var w [6]float64 // speed, pass, shot, defense, dribble, tackle
	switch b {
	case BucketGoalkeeper:
		w = [6]float64{0.10, 0.15, 0.00, 0.55, 0.00, 0.20}
	case BucketDefender:
		w = [6]float64{0.15, 0.15, 0.00, 0.40, 0.05, 0.25}
	case BucketMidfielder:
		w = [6]float64{0.15, 0.30, 0.15, 0.10, 0.20, 0.10}
	case BucketAttacker:
		w = [6]float64{0.25, 0.10, 0.40, 0.00, 0.25, 0.00}
	}
	v := w[0]*float64(a.Speed) + w[1]*float64(a.Pass) + w[2]*float64(a.Shot) +
		w[3]*float64(a.Defense) + w[4]*float64(a.Dribble) + w[5]*float64(a.Tackle)
	return int(v + 0.5)
}

type Tier string

const (
	TierStandard Tier = "standard"
	TierRich     Tier = "rich"
)

type SaleEntry struct {
	PlayerID     string `json:"player_id"`
	AskingMicros int64  `json:"asking_micros"`
	ListedWeek   int    `json:"listed_week"`
}

type Finances struct {
	TransferBudget  int64       `json:"transfer_budget_micros"`
	WagesBudget     int64       `json:"wages_budget_micros"`
	SponsorIncome   int64       `json:"sponsor_income_micros"`
	PlayersForSale  []SaleEntry `json:"players_for_sale"`
	StadiumCapacity int         `json:"stadium_capacity"`
	Attendance      int         `json:"attendance"`
}

type Team struct {
	Name       string    `json:"name"`
	Tier       Tier      `json:"tier"`
	Controlled bool      `json:"controlled"`
	Roster     []*Player `json:"roster"`
	Finances   Finances  `json:"finances"`
}

type ForeignClub struct {
	Name string `yaml:"name" json:"name"`
	Tier Tier   `yaml:"tier" json:"tier"`
}

type OfferStatus string

const (
	StatusPending  OfferStatus = "pending"
	StatusAccepted OfferStatus = "accepted"
	StatusRejected OfferStatus = "rejected"
	StatusExpired  OfferStatus = "expired"
)

type OfferKind string

const (
	KindTransfer  OfferKind = "transfer"
	KindFreeAgent OfferKind = "free_agent"
)

// Origin records who produced an offer.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginCompeting Origin = "competing"
	OriginExternal  Origin = "external"
)

// Deal is the kind-specific part of an offer. It is implemented only by
// TransferDeal and FreeAgentDeal.
type Deal interface {
	Kind() OfferKind
	isDeal()
}

type TransferDeal struct {
	Seller    string
	FeeMicros int64
}

func (TransferDeal) Kind() OfferKind { return KindTransfer }
func (TransferDeal) isDeal()         {}

type FreeAgentDeal struct{}

func (FreeAgentDeal) Kind() OfferKind { return KindFreeAgent }
func (FreeAgentDeal) isDeal()         {}

type Offer struct {
	ID               string
	PlayerID         string
	Buyer            string
	Deal             Deal
	WageMicros       int64
	ContractYears    int
	Deadline         int
	Status           OfferStatus
	Origin           Origin
	Incoming         bool
	RequiresDecision bool
	CreatedWeek      int
}

func (o *Offer) Kind() OfferKind {
	return o.Deal.Kind()
}

// Fee is the transfer fee in micros, zero for free-agent offers.
func (o *Offer) Fee() int64 {
	if d, ok := o.Deal.(TransferDeal); ok {
		return d.FeeMicros
	}
	return 0
}

// Seller is the selling club, empty for free-agent offers.
func (o *Offer) Seller() string {
	if d, ok := o.Deal.(TransferDeal); ok {
		return d.Seller
	}
	return ""
}

func (o *Offer) suspended() bool {
	return o.Incoming && o.RequiresDecision
}

type offerJSON struct {
	ID               string      `json:"id"`
	PlayerID         string      `json:"player_id"`
	Type             OfferKind   `json:"type"`
	Buyer            string      `json:"buyer"`
	Seller           string      `json:"seller,omitempty"`
	FeeMicros        int64       `json:"fee_micros"`
	WageMicros       int64       `json:"wage_micros"`
	ContractYears    int         `json:"contract_years"`
	Deadline         int         `json:"deadline"`
	Status           OfferStatus `json:"status"`
	Origin           Origin      `json:"origin"`
	Incoming         bool        `json:"incoming,omitempty"`
	RequiresDecision bool        `json:"requires_decision,omitempty"`
	CreatedWeek      int         `json:"created_week"`
}

func (o Offer) MarshalJSON() ([]byte, error) {
	if o.Deal == nil {
		return nil, fmt.Errorf("offer %s has no deal", o.ID)
	}
	return json.Marshal(offerJSON{
		ID:               o.ID,
		PlayerID:         o.PlayerID,
		Type:             o.Deal.Kind(),
		Buyer:            o.Buyer,
		Seller:           o.Seller(),
		FeeMicros:        o.Fee(),
		WageMicros:       o.WageMicros,
		ContractYears:    o.ContractYears,
		Deadline:         o.Deadline,
		Status:           o.Status,
		Origin:           o.Origin,
		Incoming:         o.Incoming,
		RequiresDecision: o.RequiresDecision,
		CreatedWeek:      o.CreatedWeek,
	})
}

func (o *Offer) UnmarshalJSON(raw []byte) error {
	var in offerJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	switch in.Type {
	case KindTransfer:
		o.Deal = TransferDeal{Seller: in.Seller, FeeMicros: in.FeeMicros}
	case KindFreeAgent:
		o.Deal = FreeAgentDeal{}
	default:
		return fmt.Errorf("unknown offer type %q", in.Type)
	}
	o.ID = in.ID
	o.PlayerID = in.PlayerID
	o.Buyer = in.Buyer
	o.WageMicros = in.WageMicros
	o.ContractYears = in.ContractYears
	o.Deadline = in.Deadline
	o.Status = in.Status
	o.Origin = in.Origin
	o.Incoming = in.Incoming
	o.RequiresDecision = in.RequiresDecision
	o.CreatedWeek = in.CreatedWeek
	return nil
}

type TransferRecord struct {
	ID            string    `json:"id"`
	Season        int       `json:"season"`
	Week          int       `json:"week"`
	PlayerID      string    `json:"player_id"`
	PlayerName    string    `json:"player_name"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	FeeMicros     int64     `json:"fee_micros"`
	WageMicros    int64     `json:"wage_micros"`
	ContractYears int       `json:"contract_years"`
	Kind          OfferKind `json:"kind"`
	RecordedAt    time.Time `json:"recorded_at"`
}
