package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitTransferOfferSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"offer":{"id":"o-1","player_id":"p-1","type":"transfer","buyer":"User FC","seller":"Other FC","fee_micros":12500000,"wage_micros":50000,"contract_years":3,"deadline":2,"status":"pending","origin":"user","created_week":1}}`))
	}))
	defer srv.Close()

	offer, err := NewClient(srv.URL+"/").SubmitTransferOffer(context.Background(), "User FC", "p-1", "12.5", "0.05", 3)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotKey == "" || gotPath != "/v1/offers/transfer" {
		t.Fatalf("key %q path %q", gotKey, gotPath)
	}
	if gotBody["fee"] != "12.5" || gotBody["contract_years"] != float64(3) {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if offer.Fee() != 12_500_000 || offer.Seller() != "Other FC" {
		t.Fatalf("offer not decoded: %+v", offer)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/teams/User%20FC/listings" && r.URL.Path != "/v1/teams/User FC/listings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"role would fall below minimum: goalkeeper"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).ListForSale(context.Background(), "User FC", "p-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "role would fall below minimum: goalkeeper" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
