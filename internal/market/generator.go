package market

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// TeamSeed names a league club to create when seeding a world.
type TeamSeed struct {
	Name string `yaml:"name" json:"name"`
	Tier Tier   `yaml:"tier" json:"tier"`
}

var DefaultLeague = []TeamSeed{
	{Name: "Northbridge Athletic", Tier: TierStandard},
	{Name: "Harbor City", Tier: TierRich},
	{Name: "Ironvale United", Tier: TierStandard},
	{Name: "Kingsford Rovers", Tier: TierStandard},
	{Name: "Westmere Town", Tier: TierStandard},
	{Name: "Redcliffe Albion", Tier: TierRich},
	{Name: "Ashford Wanderers", Tier: TierStandard},
	{Name: "Millbrook FC", Tier: TierStandard},
}

var squadTemplate = []string{
	"GK", "GK", "GK",
	"CB", "CB", "CB", "CB", "LB", "RB", "LWB",
	"DM", "CM", "CM", "CM", "AM", "LM", "RM",
	"ST", "ST", "CF", "LW", "RW",
}

var (
	firstNames = []string{"Luca", "Mateo", "Jonas", "Kofi", "Rafael", "Tomas", "Yusuf", "Aleks", "Dario", "Emil", "Felix", "Hugo", "Ibrahim", "Jules", "Kenji", "Leon", "Marco", "Nico", "Oscar", "Pablo", "Rui", "Sami", "Theo", "Victor"}
	lastNames  = []string{"Moreau", "Silva", "Novak", "Okafor", "Berg", "Costa", "Duarte", "Eriksen", "Fischer", "Garcia", "Hansen", "Ivanov", "Jansen", "Kovac", "Larsen", "Mensah", "Nunez", "Ortega", "Petrov", "Rossi", "Santos", "Tanaka", "Varga", "Weber"}
)

// Generator produces synthetic players for seeding and free-agent pool
// replenishment.
type Generator struct {
	rand Source
}

func NewGenerator(src Source) *Generator {
	return &Generator{rand: src}
}

// Player creates a player for role at club with attributes, rating, value
// and wage drawn from the generator's source.
func (g *Generator) Player(role, club string) *Player {
	a := Attributes{
		Speed:   45 + g.rand.Intn(40),
		Pass:    45 + g.rand.Intn(40),
		Shot:    45 + g.rand.Intn(40),
		Defense: 45 + g.rand.Intn(40),
		Dribble: 45 + g.rand.Intn(40),
		Tackle:  45 + g.rand.Intn(40),
	}
	age := 18 + g.rand.Intn(17)
	rating := RateOverall(role, a)
	value := playerValue(rating, age)
	return &Player{
		ID:            uuid.NewString(),
		Name:          fmt.Sprintf("%s %s", firstNames[g.rand.Intn(len(firstNames))], lastNames[g.rand.Intn(len(lastNames))]),
		Roles:         []string{role},
		Age:           age,
		Attributes:    a,
		Rating:        rating,
		ValueMicros:   value,
		WageMicros:    max(scaleMicros(value, 0.005), 1_000),
		ContractYears: 1 + g.rand.Intn(4),
		Club:          club,
	}
}

func (g *Generator) FreeAgent(role string) *Player {
	p := g.Player(role, FreeAgentClub)
	p.ContractYears = 0
	return p
}

// SeedWorld builds a league from teams with full squads, sized budgets and a
// free-agent pool. userTeam, when non-empty, marks the human-controlled club.
func (g *Generator) SeedWorld(teams []TeamSeed, userTeam string, freeAgents int) *World {
	w := &World{Season: 1, UserTeam: userTeam}
	for _, seed := range teams {
		t := &Team{Name: seed.Name, Tier: seed.Tier, Controlled: seed.Name == userTeam}
		if t.Tier == "" {
			t.Tier = TierStandard
		}
		for _, role := range squadTemplate {
			p := g.Player(role, t.Name)
			p.SquadNumber = t.nextSquadNumber()
			t.Roster = append(t.Roster, p)
		}
		budget := 15 + g.rand.Float64()*25
		capacity := 18_000 + g.rand.Intn(20_000)
		if t.Tier == TierRich {
			budget = 60 + g.rand.Float64()*40
			capacity += 25_000
		}
		t.Finances = Finances{
			TransferBudget:  MillionsToMicros(math.Round(budget*10) / 10),
			WagesBudget:     scaleMicros(t.WageLoad(), 1.15+g.rand.Float64()*0.2),
			SponsorIncome:   MillionsToMicros(math.Round(budget) / 10),
			StadiumCapacity: capacity,
			Attendance:      capacity * (70 + g.rand.Intn(30)) / 100,
		}
		w.Teams = append(w.Teams, t)
	}
	for i := 0; i < freeAgents; i++ {
		w.FreeAgents = append(w.FreeAgents, g.FreeAgent(squadTemplate[g.rand.Intn(len(squadTemplate))]))
	}
	return w
}

// playerValue maps rating and age onto a market value in micros.
func playerValue(rating, age int) int64 {
	base := math.Pow(float64(max(rating-40, 5)), 2) / 60
	switch {
	case age < 24:
		base *= 1.2
	case age > 30:
		base *= 0.6
	}
	return max(MillionsToMicros(math.Round(base*100)/100), 200_000)
}
