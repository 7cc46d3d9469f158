package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"}, zerolog.Nop())
}

func writeBody(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestStatsDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeBody(w, 200, map[string]any{"total_cards": 4, "total_accesses": 17, "success": true})
	})
	st, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalCards != 4 || st.TotalAccesses != 17 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestStatsMissingFieldsAreZero(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 200, map[string]any{})
	})
	st, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalCards != 0 || st.TotalAccesses != 0 {
		t.Errorf("expected zero stats, got %+v", st)
	}
}

func TestCardsEmptyListIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 200, map[string]any{"success": true})
	})
	cards, err := c.Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if cards == nil || len(cards) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", cards)
	}
}

func TestCardsDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 200, map[string]any{"cards": []map[string]any{
			{"uid": "A1B2C3", "name": "Alice", "access_level": 2, "first_seen": 1700000000, "last_seen": 1700000100, "access_count": 3},
		}})
	})
	cards, err := c.Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	got := cards[0]
	if got.UID != "A1B2C3" || got.Name != "Alice" || got.AccessLevel != models.AccessIntermediate || got.AccessCount != 3 {
		t.Errorf("unexpected card %+v", got)
	}
	if got.FirstSeenTime().Unix() != 1700000000 {
		t.Errorf("unexpected first seen %v", got.FirstSeenTime())
	}
}

func TestMalformedReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("<html>oops</html>")) //nolint:errcheck
	})
	_, err := c.Logs(context.Background())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNon2xxIsNetworkFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 500, map[string]any{"success": false, "message": "db busy"})
	})
	_, err := c.Cards(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if got := Message(err, "fallback"); got != "db busy" {
		t.Errorf("expected device message, got %q", got)
	}
}

func TestUnreachableIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url}, zerolog.Nop())
	_, err := c.Stats(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if got := Message(err, "connection error"); got != "connection error" {
		t.Errorf("expected fallback message, got %q", got)
	}
}

func TestCreateCardRejectedWith200(t *testing.T) {
	var got models.NewCard
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/cards" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		writeBody(w, 200, map[string]any{"success": false, "message": "Invalid data"})
	})
	err := c.CreateCard(context.Background(), models.NewCard{UID: "A1B2C3", Name: "Alice", AccessLevel: 2})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if Message(err, "") != "Invalid data" {
		t.Errorf("expected device message, got %q", Message(err, ""))
	}
	if got.UID != "A1B2C3" || got.Name != "Alice" || got.AccessLevel != 2 {
		t.Errorf("unexpected request body %+v", got)
	}
}

func TestCreateCardAcceptsEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	if err := c.CreateCard(context.Background(), models.NewCard{UID: "X", Name: "Y", AccessLevel: 1}); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
}

func TestDeleteCardEscapesUID(t *testing.T) {
	var rawPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		writeBody(w, 200, map[string]any{"success": true})
	})
	if err := c.DeleteCard(context.Background(), "AB CD/01"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if rawPath != "/api/cards/AB%20CD%2F01" {
		t.Errorf("unexpected path %q", rawPath)
	}
}

func TestScan(t *testing.T) {
	var reply atomic.Value
	reply.Store(map[string]any{"success": false, "message": "no card"})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 200, reply.Load())
	})
	res, err := c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Detected {
		t.Fatal("expected no detection")
	}

	reply.Store(map[string]any{"success": true, "uid": "DEADBEEF"})
	res, err = c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Detected || res.UID != "DEADBEEF" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestLastCard(t *testing.T) {
	var reply atomic.Value
	reply.Store(map[string]any{"success": false})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 200, reply.Load())
	})
	card, err := c.LastCard(context.Background())
	if err != nil || card != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", card, err)
	}

	reply.Store(map[string]any{"success": true, "uid": "A1", "name": "Alice", "access_level": 3, "access_count": 9})
	card, err = c.LastCard(context.Background())
	if err != nil {
		t.Fatalf("LastCard: %v", err)
	}
	if card.Label() != "Alice (A1)" || card.AccessLevel != models.AccessAdministrator {
		t.Errorf("unexpected card %+v", card)
	}
}
