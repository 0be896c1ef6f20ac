package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"touchline/internal/config"
	"touchline/internal/league"
	"touchline/internal/market"
	"touchline/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NotificationFeed exposes the most recent user notifications.
type NotificationFeed interface {
	Recent(n int) []notify.Message
}

// TransferArchive is durable transfer history, queried instead of the
// in-memory history when configured.
type TransferArchive interface {
	Transfers(ctx context.Context, club string, limit int) ([]market.TransferRecord, error)
}

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	market   *market.Service
	calendar *league.Calendar
	feed     NotificationFeed
	archive  TransferArchive
	idem     *idempotencyCache
	mux      *chi.Mux

	advanceMu sync.Mutex
}

func New(cfg config.APIConfig, logger *slog.Logger, svc *market.Service, cal *league.Calendar, feed NotificationFeed, archive TransferArchive) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		market:   svc,
		calendar: cal,
		feed:     feed,
		archive:  archive,
		idem:     newIdempotencyCache(cfg.IdempotencyTTL),
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/week", s.handleWeek)
		r.Get("/teams", s.handleTeams)
		r.Get("/teams/{team}", s.handleTeam)
		r.Get("/teams/{team}/listings", s.handleListings)
		r.Get("/teams/{team}/offers", s.handlePendingOffers)
		r.Get("/players/search", s.handleSearch)
		r.Get("/players/{player_id}/offers", s.handlePlayerOffers)
		r.Get("/free-agents", s.handleFreeAgents)
		r.Get("/transfers", s.handleTransfers)
		r.Get("/notifications", s.handleNotifications)

		r.Group(func(r chi.Router) {
			r.Use(s.idem.middleware)
			r.Post("/teams/{team}/listings", s.handleList)
			r.Delete("/teams/{team}/listings/{player_id}", s.handleUnlist)
			r.Delete("/teams/{team}/offers/{offer_id}", s.handleCancelOffer)
			r.Post("/offers/transfer", s.handleTransferOffer)
			r.Post("/offers/free-agent", s.handleFreeAgentOffer)
			r.Post("/offers/{offer_id}/accept", s.handleAcceptOffer)
			r.Post("/offers/{offer_id}/reject", s.handleRejectOffer)
			r.Post("/week/advance", s.handleAdvanceWeek)
			r.Post("/week/drain", s.handleDrain)
		})
	})
}

type weekView struct {
	Week         int `json:"week"`
	Season       int `json:"season"`
	WeekOfSeason int `json:"week_of_season"`
}

func (s *Server) currentWeek() weekView {
	return weekView{
		Week:         s.calendar.CurrentWeek(),
		Season:       s.calendar.Season(),
		WeekOfSeason: s.calendar.WeekOfSeason(),
	}
}

func (s *Server) handleWeek(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentWeek())
}

// TeamSummary is the list view of a club.
type TeamSummary struct {
	Name                 string      `json:"name"`
	Tier                 market.Tier `json:"tier"`
	Controlled           bool        `json:"controlled"`
	SquadSize            int         `json:"squad_size"`
	Listed               int         `json:"listed"`
	TransferBudgetMicros int64       `json:"transfer_budget_micros"`
	WagesBudgetMicros    int64       `json:"wages_budget_micros"`
	WageLoadMicros       int64       `json:"wage_load_micros"`
}

func (s *Server) handleTeams(w http.ResponseWriter, _ *http.Request) {
	teams := s.market.Teams()
	out := make([]TeamSummary, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		out = append(out, TeamSummary{
			Name:                 t.Name,
			Tier:                 t.Tier,
			Controlled:           t.Controlled,
			SquadSize:            len(t.Roster),
			Listed:               t.ListedCount(),
			TransferBudgetMicros: t.Finances.TransferBudget,
			WagesBudgetMicros:    t.Finances.WagesBudget,
			WageLoadMicros:       t.WageLoad(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_team": s.market.UserTeam(), "teams": out})
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	t, err := s.market.Team(pathParam(r, "team"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": t, "wage_load_micros": t.WageLoad()})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.market.ListingsForTeam(pathParam(r, "team"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID string `json:"player_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	team := pathParam(r, "team")
	if err := s.market.ListForSale(r.Context(), team, in.PlayerID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "team": team, "player_id": in.PlayerID})
}

func (s *Server) handleUnlist(w http.ResponseWriter, r *http.Request) {
	if err := s.market.Unlist(r.Context(), pathParam(r, "team"), pathParam(r, "player_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePendingOffers(w http.ResponseWriter, r *http.Request) {
	team := pathParam(r, "team")
	if _, err := s.market.Team(team); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": nonNil(s.market.PendingOffers(team))})
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.market.CancelOutgoingOffer(r.Context(), pathParam(r, "team"), pathParam(r, "offer_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Money fields are decimal strings in millions, e.g. "12.5".
type transferOfferRequest struct {
	Buyer         string `json:"buyer"`
	PlayerID      string `json:"player_id"`
	Fee           string `json:"fee"`
	Wage          string `json:"wage"`
	ContractYears int    `json:"contract_years"`
}

type freeAgentOfferRequest struct {
	Buyer         string `json:"buyer"`
	PlayerID      string `json:"player_id"`
	Wage          string `json:"wage"`
	ContractYears int    `json:"contract_years"`
}

func (s *Server) handleTransferOffer(w http.ResponseWriter, r *http.Request) {
	var in transferOfferRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fee, err := market.ParseMillions(in.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "fee: "+err.Error())
		return
	}
	wage, err := market.ParseMillions(in.Wage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "wage: "+err.Error())
		return
	}
	offer, err := s.market.SubmitTransferOffer(r.Context(), market.TransferOfferInput{
		Buyer:         strings.TrimSpace(in.Buyer),
		PlayerID:      strings.TrimSpace(in.PlayerID),
		FeeMicros:     fee,
		WageMicros:    wage,
		ContractYears: in.ContractYears,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"offer": offer})
}

func (s *Server) handleFreeAgentOffer(w http.ResponseWriter, r *http.Request) {
	var in freeAgentOfferRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	wage, err := market.ParseMillions(in.Wage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "wage: "+err.Error())
		return
	}
	offer, err := s.market.SubmitFreeAgentOffer(r.Context(), market.FreeAgentOfferInput{
		Buyer:         strings.TrimSpace(in.Buyer),
		PlayerID:      strings.TrimSpace(in.PlayerID),
		WageMicros:    wage,
		ContractYears: in.ContractYears,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"offer": offer})
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	rec, err := s.market.AcceptIncomingOffer(r.Context(), pathParam(r, "offer_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfer": rec})
}

func (s *Server) handleRejectOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.market.RejectIncomingOffer(r.Context(), pathParam(r, "offer_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePlayerOffers(w http.ResponseWriter, r *http.Request) {
	playerID := pathParam(r, "player_id")
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id": playerID,
		"rejected":  s.market.IsRejectedPlayer(playerID),
		"offers":    nonNil(s.market.OffersForPlayer(playerID)),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": nonNil(s.market.FindPlayer(q, queryInt(r, "limit", 10)))})
}

func (s *Server) handleFreeAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"free_agents": s.market.FreeAgents()})
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	club := strings.TrimSpace(r.URL.Query().Get("club"))
	limit := queryInt(r, "limit", 50)
	if s.archive != nil {
		recs, err := s.archive.Transfers(r.Context(), club, limit)
		if err != nil {
			s.log.Error("transfer archive query failed", "club", club, "err", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transfers": nonNil(recs)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": nonNil(recentTransfers(s.market.TransferHistory(), club, limit))})
}

// recentTransfers filters history to club, newest first.
func recentTransfers(history []market.TransferRecord, club string, limit int) []market.TransferRecord {
	var out []market.TransferRecord
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		rec := history[i]
		if club == "" || rec.From == club || rec.To == club {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []notify.Message{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": nonNil(s.feed.Recent(queryInt(r, "limit", 20)))})
}

// handleAdvanceWeek moves the calendar forward and resolves the new week.
// Calls are serialised so no week is skipped.
func (s *Server) handleAdvanceWeek(w http.ResponseWriter, r *http.Request) {
	s.advanceMu.Lock()
	defer s.advanceMu.Unlock()

	week := s.calendar.Advance()
	s.market.SetSeason(s.calendar.Season())
	report := s.market.ResolveWeek(r.Context())
	s.log.Info("week advanced", "week", week, "season", s.calendar.Season(), "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"calendar": s.currentWeek(), "report": report})
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	n := s.market.DrainDeferred(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"generated": n})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrAffordabilityDrift):
		writeError(w, http.StatusConflict, err.Error())
	case market.IsValidationFailure(err), errors.Is(err, market.ErrInvalidAmountString):
		writeError(w, http.StatusBadRequest, err.Error())
	case market.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrNoDecisionRequired), errors.Is(err, market.ErrNotOwnOffer):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// pathParam unescapes a route parameter; club names may contain spaces.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(raw)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
