package market

import (
	"context"
	"errors"
	"testing"
)

type recordingSink struct {
	recs []TransferRecord
}

func (r *recordingSink) RecordTransfer(_ context.Context, rec TransferRecord) error {
	r.recs = append(r.recs, rec)
	return nil
}

func submit(t *testing.T, s *Service, buyer string, playerID string, fee int64, wage int64, years int) Offer {
	t.Helper()
	o, err := s.SubmitTransferOffer(context.Background(), TransferOfferInput{
		Buyer:         buyer,
		PlayerID:      playerID,
		FeeMicros:     fee,
		WageMicros:    wage,
		ContractYears: years,
	})
	if err != nil {
		t.Fatalf("%s offer for %s: %v", buyer, playerID, err)
	}
	return o
}

func TestResolveWeekAtMostOneSettlement(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	buyers := []*Team{testTeam("A FC", TierStandard), testTeam("B FC", TierStandard), testTeam("C FC", TierStandard)}
	s, clock, rnd := newTestService(t, append([]*Team{seller}, buyers...)...)
	target := seller.Roster[12]
	for i, b := range buyers {
		submit(t, s, b.Name, target.ID, int64(10+i)*MicrosPerMillion, 50_000, 3)
	}

	before := map[string]int64{}
	for _, team := range s.world.Teams {
		before[team.Name] = team.Finances.TransferBudget
	}

	clock.week = 2
	rnd.floats = []float64{0.0}
	report := s.ResolveWeek(context.Background())
	if len(report.Resolutions) != 1 {
		t.Fatalf("expected one resolution, got %d", len(report.Resolutions))
	}
	res := report.Resolutions[0]
	accepted := 0
	for _, o := range res.Offers {
		switch o.Status {
		case StatusAccepted:
			accepted++
		case StatusRejected:
		default:
			t.Fatalf("offer %s left in status %s", o.ID, o.Status)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted offer, got %d", accepted)
	}
	if len(s.OffersForPlayer(target.ID)) != 0 {
		t.Fatalf("ledger still holds offers for the transferred player")
	}

	winner, _ := s.world.Team(res.Winner.Buyer)
	if winner.Finances.TransferBudget+seller.Finances.TransferBudget != before[winner.Name]+before[seller.Name] {
		t.Fatalf("transfer budgets not conserved")
	}
	if seller.Finances.TransferBudget-before[seller.Name] != res.Winner.Fee() {
		t.Fatalf("seller credited %d want %d", seller.Finances.TransferBudget-before[seller.Name], res.Winner.Fee())
	}
	if target.WageMicros != res.Winner.WageMicros || target.ContractYears != res.Winner.ContractYears {
		t.Fatalf("player terms not updated: %+v", target)
	}
	if target.SquadNumber != 23 {
		t.Fatalf("expected lowest free squad number 23, got %d", target.SquadNumber)
	}
	if h := s.TransferHistory(); len(h) != 1 || h[0].From != seller.Name || h[0].To != winner.Name {
		t.Fatalf("unexpected history %+v", h)
	}
	assertWorldConsistent(t, s)
}

func TestResolveWeekRejectionsCloseInterest(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	buyer := userTeam("User FC")
	s, clock, rnd := newTestService(t, seller, buyer, testTeam("Rival FC", TierStandard))
	ctx := context.Background()
	target := seller.Roster[12]

	for round := 1; round <= 3; round++ {
		submit(t, s, buyer.Name, target.ID, 10*MicrosPerMillion, 50_000, 2)
		clock.week++
		rnd.floats = []float64{0.99}
		report := s.ResolveWeek(ctx)
		if len(report.Resolutions) != 1 || report.Resolutions[0].Accepted {
			t.Fatalf("round %d: expected a rejection, got %+v", round, report.Resolutions)
		}
		if got := s.ledger.Attempts(target.ID); got != round {
			t.Fatalf("round %d: attempts=%d", round, got)
		}
		if got := s.IsRejectedPlayer(target.ID); got != (round == 3) {
			t.Fatalf("round %d: rejected=%v", round, got)
		}
	}

	if err := s.ListForSale(ctx, seller.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	clock.week++
	rnd.floats = []float64{0.7, 0.5, 0.5}
	if report := s.ResolveWeek(ctx); report.Generated != 0 {
		t.Fatalf("rejected player received foreign interest")
	}

	rnd.ints = []int{2, 0, 0, 0}
	submit(t, s, buyer.Name, target.ID, 10*MicrosPerMillion, 50_000, 2)
	offers := s.OffersForPlayer(target.ID)
	if len(offers) != 1 || offers[0].Origin != OriginUser {
		t.Fatalf("rejected player drew competing offers: %+v", offers)
	}
	assertWorldConsistent(t, s)
}

func TestResolveWeekAffordabilityDrift(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	buyer := userTeam("User FC")
	other := testTeam("Other FC", TierStandard)
	s, clock, rnd := newTestService(t, seller, buyer, other)
	notes := &recordingNotifier{}
	s.SetNotifier(notes)
	ctx := context.Background()

	first := seller.Roster[12]
	second := seller.Roster[13]
	submit(t, s, buyer.Name, first.ID, 10*MicrosPerMillion, 50_000, 3)
	submit(t, s, other.Name, second.ID, 10*MicrosPerMillion, 50_000, 3)

	buyer.Finances.TransferBudget = 5 * MicrosPerMillion
	clock.week = 2
	rnd.floats = []float64{0.0, 0.0}
	report := s.ResolveWeek(ctx)
	if len(report.Resolutions) != 2 {
		t.Fatalf("expected two resolutions, got %d", len(report.Resolutions))
	}
	failed := report.Resolutions[0]
	if failed.Accepted || failed.Error == "" || failed.Offers[0].Status != StatusRejected {
		t.Fatalf("drifted offer should be rejected: %+v", failed)
	}
	if first.Club != seller.Name || buyer.Finances.TransferBudget != 5*MicrosPerMillion {
		t.Fatalf("failed settlement changed state")
	}
	if !report.Resolutions[1].Accepted || second.Club != other.Name {
		t.Fatalf("second player should still settle: %+v", report.Resolutions[1])
	}
	if s.ledger.Attempts(first.ID) != 0 {
		t.Fatalf("failed settlement counted as a player rejection")
	}
	if len(notes.msgs) == 0 {
		t.Fatalf("user was not told the deal fell through")
	}
	assertWorldConsistent(t, s)
}

func TestSettleAffordabilityDriftError(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	buyer := testTeam("Buyer FC", TierStandard)
	s, _, _ := newTestService(t, seller, buyer)
	o := submit(t, s, buyer.Name, seller.Roster[12].ID, 10*MicrosPerMillion, 50_000, 3)
	buyer.Finances.WagesBudget = buyer.WageLoad()

	live, _ := s.ledger.Offer(o.ID)
	_, err := s.settleLocked(live)
	if !errors.Is(err, ErrAffordabilityDrift) || !errors.Is(err, ErrWageBudget) {
		t.Fatalf("got %v want affordability drift on wages", err)
	}
	if live.Status != StatusPending {
		t.Fatalf("failed settlement touched the offer")
	}
}

func TestIncomingOffersAwaitDecision(t *testing.T) {
	user := userTeam("User FC")
	s, clock, rnd := newTestService(t, user)
	ctx := context.Background()
	target := user.Roster[12]

	if err := s.ListForSale(ctx, user.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	clock.week = 2
	rnd.floats = []float64{0.7, 0.5, 0.5}
	report := s.ResolveWeek(ctx)
	if report.Generated != 1 {
		t.Fatalf("expected generated interest, got %d", report.Generated)
	}
	if len(report.Resolutions) != 0 {
		t.Fatalf("incoming offer must not be resolved by the batch")
	}
	offers := s.OffersForPlayer(target.ID)
	if len(offers) != 1 || offers[0].Status != StatusPending {
		t.Fatalf("incoming offer should stay pending: %+v", offers)
	}

	clock.week = 3
	report = s.ResolveWeek(ctx)
	if len(report.Expired) != 1 || report.Expired[0].Status != StatusExpired {
		t.Fatalf("undecided incoming offer should expire: %+v", report.Expired)
	}
	if len(s.OffersForPlayer(target.ID)) != 0 {
		t.Fatalf("expired offer still pending")
	}
}

func TestAcceptIncomingOffer(t *testing.T) {
	user := userTeam("User FC")
	s, _, rnd := newTestService(t, user)
	sink := &recordingSink{}
	s.AddHistorySink(sink)
	ctx := context.Background()
	target := user.Roster[12]

	if err := s.ListForSale(ctx, user.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	rnd.floats = []float64{0.7, 0.5, 0.5}
	s.DrainDeferred(ctx)
	o := s.OffersForPlayer(target.ID)[0]

	budget := user.Finances.TransferBudget
	rec, err := s.AcceptIncomingOffer(ctx, o.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if rec.To != o.Buyer || rec.From != user.Name || rec.FeeMicros != o.Fee() {
		t.Fatalf("unexpected record %+v", rec)
	}
	if user.Player(target.ID) != nil || len(user.Finances.PlayersForSale) != 0 {
		t.Fatalf("sold player still on roster or sale list")
	}
	if user.Finances.TransferBudget != budget+o.Fee() {
		t.Fatalf("seller not credited")
	}
	if len(sink.recs) != 1 || sink.recs[0].ID != rec.ID {
		t.Fatalf("history sink not called: %+v", sink.recs)
	}
	if _, err := s.AcceptIncomingOffer(ctx, o.ID); !IsNotFound(err) {
		t.Fatalf("got %v want not found", err)
	}
	assertWorldConsistent(t, s)
}

func TestRejectIncomingOffer(t *testing.T) {
	user := userTeam("User FC")
	seller := testTeam("Seller FC", TierStandard)
	s, _, rnd := newTestService(t, user, seller)
	ctx := context.Background()
	target := user.Roster[12]

	if err := s.ListForSale(ctx, user.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	rnd.floats = []float64{0.7, 0.5, 0.5}
	s.DrainDeferred(ctx)
	o := s.OffersForPlayer(target.ID)[0]
	if err := s.RejectIncomingOffer(ctx, o.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(s.OffersForPlayer(target.ID)) != 0 || !target.Listed {
		t.Fatalf("reject should drop the offer and keep the listing")
	}

	mine := submit(t, s, user.Name, seller.Roster[12].ID, 10*MicrosPerMillion, 50_000, 3)
	if err := s.RejectIncomingOffer(ctx, mine.ID); !errors.Is(err, ErrNoDecisionRequired) {
		t.Fatalf("got %v want ErrNoDecisionRequired", err)
	}
}

func TestCancelOutgoingOffer(t *testing.T) {
	user := userTeam("User FC")
	seller := testTeam("Seller FC", TierStandard)
	s, _, _ := newTestService(t, user, seller)
	ctx := context.Background()
	o := submit(t, s, user.Name, seller.Roster[12].ID, 10*MicrosPerMillion, 50_000, 3)

	if err := s.CancelOutgoingOffer(ctx, seller.Name, o.ID); !errors.Is(err, ErrNotOwnOffer) {
		t.Fatalf("got %v want ErrNotOwnOffer", err)
	}
	if err := s.CancelOutgoingOffer(ctx, user.Name, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(s.PendingOffers(user.Name)) != 0 {
		t.Fatalf("cancelled offer still pending")
	}
	if err := s.CancelOutgoingOffer(ctx, user.Name, o.ID); !IsNotFound(err) {
		t.Fatalf("got %v want not found", err)
	}
}

func TestFreeAgentSigningReplenishesPool(t *testing.T) {
	user := userTeam("User FC")
	s, clock, rnd := newTestService(t, user)
	fa := &Player{ID: "fa-1", Name: "Free One", Roles: []string{"CM"}, Age: 31, ValueMicros: MicrosPerMillion, WageMicros: 40_000, Club: FreeAgentClub}
	s.world.FreeAgents = []*Player{fa}
	ctx := context.Background()

	budget := user.Finances.TransferBudget
	if _, err := s.SubmitFreeAgentOffer(ctx, FreeAgentOfferInput{Buyer: user.Name, PlayerID: fa.ID, WageMicros: 50_000, ContractYears: 3}); err != nil {
		t.Fatalf("offer: %v", err)
	}
	clock.week = 2
	rnd.floats = []float64{0.0}
	report := s.ResolveWeek(ctx)
	if len(report.Resolutions) != 1 || !report.Resolutions[0].Accepted {
		t.Fatalf("expected signing, got %+v", report.Resolutions)
	}
	if fa.Club != user.Name || user.Player(fa.ID) == nil {
		t.Fatalf("free agent not signed")
	}
	if user.Finances.TransferBudget != budget {
		t.Fatalf("free agent signing moved transfer money")
	}
	if len(s.world.FreeAgents) != 1 || s.world.FreeAgents[0].ID == fa.ID || s.world.FreeAgents[0].PrimaryRole() != "CM" {
		t.Fatalf("pool not replenished with a CM: %+v", s.world.FreeAgents)
	}
	if h := s.TransferHistory(); len(h) != 1 || h[0].Kind != KindFreeAgent || h[0].From != FreeAgentClub {
		t.Fatalf("unexpected history %+v", h)
	}
	assertWorldConsistent(t, s)
}

func TestCompetingOffersShareDeadline(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	user := userTeam("User FC")
	s, _, rnd := newTestService(t, seller, user, testTeam("A FC", TierStandard), testTeam("B FC", TierStandard))
	ctx := context.Background()
	target := seller.Roster[12]
	if err := s.ListForSale(ctx, seller.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}

	rnd.ints = []int{2, 1, 1, 2}
	mine := submit(t, s, user.Name, target.ID, 10*MicrosPerMillion, 50_000, 3)
	offers := s.OffersForPlayer(target.ID)
	if len(offers) != 3 {
		t.Fatalf("expected two competing offers, got %d total", len(offers))
	}
	for _, o := range offers[1:] {
		if o.Origin != OriginCompeting || o.Deadline != mine.Deadline || o.Seller() != seller.Name {
			t.Fatalf("bad competing offer %+v", o)
		}
		if o.Buyer == user.Name || o.Buyer == seller.Name {
			t.Fatalf("competing offer from %s", o.Buyer)
		}
		if o.Fee() < 8_500_000 || o.Fee() > 12_000_000 {
			t.Fatalf("competing fee %s outside variance", FormatMillions(o.Fee()))
		}
	}
}

func TestLeagueBidForUserPlayerAwaitsDecision(t *testing.T) {
	user := userTeam("User FC")
	ai := testTeam("AI FC", TierStandard)
	s, clock, rnd := newTestService(t, user, ai, testTeam("Rival FC", TierStandard))
	notes := &recordingNotifier{}
	s.SetNotifier(notes)
	ctx := context.Background()
	target := user.Roster[12]

	if err := s.ListForSale(ctx, user.Name, target.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	rnd.floats = []float64{0.7, 0.5, 0.5}
	s.DrainDeferred(ctx)

	rnd.ints = []int{1, 0}
	bid := submit(t, s, ai.Name, target.ID, 10*MicrosPerMillion, 50_000, 3)
	if !bid.Incoming || !bid.RequiresDecision {
		t.Fatalf("bid for the user's player should await a decision: %+v", bid)
	}
	offers := s.OffersForPlayer(target.ID)
	if len(offers) != 3 {
		t.Fatalf("expected foreign, league and competing offers, got %d", len(offers))
	}
	for _, o := range offers {
		if !o.Incoming || !o.RequiresDecision {
			t.Fatalf("offer from %s (%s) not marked incoming", o.Buyer, o.Origin)
		}
	}
	if len(notes.msgs) == 0 {
		t.Fatalf("user was not told about the bid")
	}

	clock.week = 2
	rnd.floats = []float64{0.0}
	report := s.ResolveWeek(ctx)
	if len(report.Resolutions) != 0 {
		t.Fatalf("pass resolved offers awaiting the user: %+v", report.Resolutions)
	}
	if target.Club != user.Name || len(s.OffersForPlayer(target.ID)) != 3 {
		t.Fatalf("player moved or offers dropped before the user decided")
	}

	rec, err := s.AcceptIncomingOffer(ctx, bid.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if rec.To != ai.Name || target.Club != ai.Name {
		t.Fatalf("unexpected transfer %+v", rec)
	}
	if len(s.OffersForPlayer(target.ID)) != 0 {
		t.Fatalf("other offers survived the sale")
	}
	assertWorldConsistent(t, s)
}

type lockCheck struct {
	s      *Service
	held   []string
	called int
}

func (c *lockCheck) check(hook string) {
	c.called++
	if !c.s.mu.TryLock() {
		c.held = append(c.held, hook)
		return
	}
	c.s.mu.Unlock()
}

func (c *lockCheck) Notify(string) { c.check("notifier") }

func (c *lockCheck) Persist(context.Context, State) error {
	c.check("persister")
	return nil
}

func (c *lockCheck) RecordTransfer(context.Context, TransferRecord) error {
	c.check("history sink")
	return nil
}

func TestHooksRunOutsideEngineLock(t *testing.T) {
	seller := testTeam("Seller FC", TierStandard)
	user := userTeam("User FC")
	s, clock, rnd := newTestService(t, seller, user)
	hooks := &lockCheck{s: s}
	s.SetNotifier(hooks)
	s.SetPersister(hooks)
	s.AddHistorySink(hooks)
	ctx := context.Background()

	submit(t, s, user.Name, seller.Roster[12].ID, 10*MicrosPerMillion, 50_000, 3)
	clock.week = 2
	rnd.floats = []float64{0.0}
	report := s.ResolveWeek(ctx)
	if len(report.Resolutions) != 1 || !report.Resolutions[0].Accepted {
		t.Fatalf("expected a settlement, got %+v", report.Resolutions)
	}
	if hooks.called < 4 {
		t.Fatalf("expected persists, a notification and a record, got %d calls", hooks.called)
	}
	if len(hooks.held) != 0 {
		t.Fatalf("hooks ran while the engine lock was held: %v", hooks.held)
	}
}
