// Package device is the HTTP/JSON client for the RFID reader's REST API.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/org/rfidconsole/pkg/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a reply is read. The firmware's largest reply is
// the card list, well under this.
const maxBody = 1 << 20

// Config holds client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // nil means http.DefaultTransport
}

// Client talks to one device.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New creates a Client for the device at cfg.BaseURL.
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: instrument(transport),
		},
		log: logger.With().Str("component", "device").Logger(),
	}
}

// BaseURL returns the device address this client targets.
func (c *Client) BaseURL() string { return c.base }

// envelope is the status part every firmware reply may carry.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (e envelope) failed() bool { return e.Success != nil && !*e.Success }

// Stats fetches GET /api/stats. LastCard is left nil; see LastCard.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var body struct {
		TotalCards    int64 `json:"total_cards"`
		TotalAccesses int64 `json:"total_accesses"`
	}
	if err := c.call(ctx, "stats", http.MethodGet, "/api/stats", nil, &body, true); err != nil {
		return nil, err
	}
	return &models.Stats{
		TotalCards:    max(body.TotalCards, 0),
		TotalAccesses: max(body.TotalAccesses, 0),
	}, nil
}

// LastCard fetches GET /api/last_card. It returns (nil, nil) when the device
// has not seen a card.
func (c *Client) LastCard(ctx context.Context) (*models.LastCard, error) {
	var body struct {
		envelope
		models.LastCard
	}
	if err := c.call(ctx, "last_card", http.MethodGet, "/api/last_card", nil, &body, false); err != nil {
		return nil, err
	}
	if body.failed() || body.UID == "" {
		return nil, nil
	}
	card := body.LastCard
	return &card, nil
}

// Cards fetches the full registry from GET /api/cards.
func (c *Client) Cards(ctx context.Context) ([]models.CardRecord, error) {
	var body struct {
		Cards []models.CardRecord `json:"cards"`
	}
	if err := c.call(ctx, "cards", http.MethodGet, "/api/cards", nil, &body, true); err != nil {
		return nil, err
	}
	if body.Cards == nil {
		body.Cards = []models.CardRecord{}
	}
	return body.Cards, nil
}

// Logs fetches the device's recent access log window from GET /api/logs.
func (c *Client) Logs(ctx context.Context) ([]models.AccessLogEntry, error) {
	var body struct {
		Logs []models.AccessLogEntry `json:"logs"`
	}
	if err := c.call(ctx, "logs", http.MethodGet, "/api/logs", nil, &body, true); err != nil {
		return nil, err
	}
	if body.Logs == nil {
		body.Logs = []models.AccessLogEntry{}
	}
	return body.Logs, nil
}

// Scan asks GET /api/scan whether a card was presented since the last query.
// The device clears its pending uid once it has been reported.
func (c *Client) Scan(ctx context.Context) (models.ScanResult, error) {
	var body struct {
		envelope
		UID string `json:"uid"`
	}
	if err := c.call(ctx, "scan", http.MethodGet, "/api/scan", nil, &body, false); err != nil {
		return models.ScanResult{}, err
	}
	if body.failed() || body.UID == "" {
		return models.ScanResult{}, nil
	}
	return models.ScanResult{Detected: true, UID: body.UID}, nil
}

// CreateCard enrolls a card via POST /api/cards.
func (c *Client) CreateCard(ctx context.Context, card models.NewCard) error {
	return c.call(ctx, "create_card", http.MethodPost, "/api/cards", card, nil, true)
}

// DeleteCard removes a card via DELETE /api/cards/{uid}.
func (c *Client) DeleteCard(ctx context.Context, uid string) error {
	return c.call(ctx, "delete_card", http.MethodDelete, "/api/cards/"+url.PathEscape(uid), nil, nil, true)
}

// call performs one request. When strict is set a 2xx reply with
// success=false is turned into ErrRejected. out may be nil, in which case an
// empty reply body is accepted.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any, strict bool) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Status: resp.StatusCode, Err: err}
	}
	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("device request")

	var env envelope
	hasBody := len(bytes.TrimSpace(data)) > 0
	if hasBody {
		// The status envelope is best effort: a reply that isn't an
		// object is only an error if the caller needs the payload.
		_ = json.Unmarshal(data, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: ErrNetwork, Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if strict && env.failed() {
		return &Error{Kind: ErrRejected, Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if !hasBody {
		return &Error{Kind: ErrMalformed, Op: op, Status: resp.StatusCode, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: ErrMalformed, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}
