package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"touchline/internal/market"
	"touchline/internal/notify"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

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

type Teams struct {
	UserTeam string        `json:"user_team"`
	Teams    []TeamSummary `json:"teams"`
}

type Week struct {
	Week         int `json:"week"`
	Season       int `json:"season"`
	WeekOfSeason int `json:"week_of_season"`
}

type AdvanceResult struct {
	Calendar Week              `json:"calendar"`
	Report   market.WeekReport `json:"report"`
}

type PlayerOffers struct {
	PlayerID string         `json:"player_id"`
	Rejected bool           `json:"rejected"`
	Offers   []market.Offer `json:"offers"`
}

func (c *Client) Week(ctx context.Context) (Week, error) {
	var out Week
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/week", nil, &out, "")
	return out, err
}

func (c *Client) Teams(ctx context.Context) (Teams, error) {
	var out Teams
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/teams", nil, &out, "")
	return out, err
}

func (c *Client) Team(ctx context.Context, team string) (market.Team, error) {
	var out struct {
		Team market.Team `json:"team"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, teamPath(team), nil, &out, "")
	return out.Team, err
}

func (c *Client) Listings(ctx context.Context, team string) ([]market.Listing, error) {
	var out struct {
		Listings []market.Listing `json:"listings"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, teamPath(team)+"/listings", nil, &out, "")
	return out.Listings, err
}

func (c *Client) ListForSale(ctx context.Context, team, playerID string) error {
	return c.jsonRequest(ctx, http.MethodPost, teamPath(team)+"/listings", map[string]any{
		"player_id": playerID,
	}, nil, uuid.NewString())
}

func (c *Client) Unlist(ctx context.Context, team, playerID string) error {
	return c.jsonRequest(ctx, http.MethodDelete, teamPath(team)+"/listings/"+url.PathEscape(playerID), nil, nil, uuid.NewString())
}

func (c *Client) PendingOffers(ctx context.Context, team string) ([]market.Offer, error) {
	var out struct {
		Offers []market.Offer `json:"offers"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, teamPath(team)+"/offers", nil, &out, "")
	return out.Offers, err
}

func (c *Client) CancelOffer(ctx context.Context, team, offerID string) error {
	return c.jsonRequest(ctx, http.MethodDelete, teamPath(team)+"/offers/"+url.PathEscape(offerID), nil, nil, uuid.NewString())
}

// SubmitTransferOffer sends fee and wage as decimal strings in millions.
func (c *Client) SubmitTransferOffer(ctx context.Context, buyer, playerID, fee, wage string, years int) (market.Offer, error) {
	var out struct {
		Offer market.Offer `json:"offer"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/offers/transfer", map[string]any{
		"buyer":          buyer,
		"player_id":      playerID,
		"fee":            fee,
		"wage":           wage,
		"contract_years": years,
	}, &out, uuid.NewString())
	return out.Offer, err
}

func (c *Client) SubmitFreeAgentOffer(ctx context.Context, buyer, playerID, wage string, years int) (market.Offer, error) {
	var out struct {
		Offer market.Offer `json:"offer"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/offers/free-agent", map[string]any{
		"buyer":          buyer,
		"player_id":      playerID,
		"wage":           wage,
		"contract_years": years,
	}, &out, uuid.NewString())
	return out.Offer, err
}

func (c *Client) AcceptOffer(ctx context.Context, offerID string) (market.TransferRecord, error) {
	var out struct {
		Transfer market.TransferRecord `json:"transfer"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/offers/"+url.PathEscape(offerID)+"/accept", nil, &out, uuid.NewString())
	return out.Transfer, err
}

func (c *Client) RejectOffer(ctx context.Context, offerID string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/offers/"+url.PathEscape(offerID)+"/reject", nil, nil, uuid.NewString())
}

func (c *Client) OffersForPlayer(ctx context.Context, playerID string) (PlayerOffers, error) {
	var out PlayerOffers
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/"+url.PathEscape(playerID)+"/offers", nil, &out, "")
	return out, err
}

func (c *Client) SearchPlayers(ctx context.Context, query string, limit int) ([]market.PlayerMatch, error) {
	q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	var out struct {
		Matches []market.PlayerMatch `json:"matches"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/search?"+q.Encode(), nil, &out, "")
	return out.Matches, err
}

func (c *Client) FreeAgents(ctx context.Context) ([]market.Player, error) {
	var out struct {
		FreeAgents []market.Player `json:"free_agents"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/free-agents", nil, &out, "")
	return out.FreeAgents, err
}

func (c *Client) Transfers(ctx context.Context, club string, limit int) ([]market.TransferRecord, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if club != "" {
		q.Set("club", club)
	}
	var out struct {
		Transfers []market.TransferRecord `json:"transfers"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/transfers?"+q.Encode(), nil, &out, "")
	return out.Transfers, err
}

func (c *Client) Notifications(ctx context.Context, limit int) ([]notify.Message, error) {
	var out struct {
		Notifications []notify.Message `json:"notifications"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/notifications?limit="+strconv.Itoa(limit), nil, &out, "")
	return out.Notifications, err
}

// AdvanceWeek moves the league calendar one week and runs resolution. idem
// may be empty.
func (c *Client) AdvanceWeek(ctx context.Context, idem string) (AdvanceResult, error) {
	var out AdvanceResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/week/advance", nil, &out, idem)
	return out, err
}

func (c *Client) DrainDeferred(ctx context.Context) (int, error) {
	var out struct {
		Generated int `json:"generated"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/week/drain", nil, &out, "")
	return out.Generated, err
}

func (c *Client) Healthy(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil, "")
}

func teamPath(team string) string {
	return "/v1/teams/" + url.PathEscape(team)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
		req.Header.Set("X-Request-Id", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
