package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxPayloadBytes bounds the size of a fetched snapshot.
const MaxPayloadBytes = 256 << 20

// ErrPayloadTooLarge is returned when a peer sends more than MaxPayloadBytes.
var ErrPayloadTooLarge = errors.New("peer payload too large")

// Client fetches snapshots from a peer's export server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the peer at baseURL, e.g.
// "http://192.168.1.20:7421". A bare host:port gets an http scheme.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health describes a peer.
type Health struct {
	Status        string `json:"status"`
	Device        string `json:"device"`
	SchemaVersion int    `json:"schemaVersion"`
}

// Health checks that the peer is reachable.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	body, _, err := c.get(ctx, "/v1/health")
	if err != nil {
		return nil, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("failed to decode peer health: %w", err)
	}
	return &h, nil
}

// Fetch downloads the peer's snapshot and returns it as the raw payload
// together with the rev the peer announced. The payload is not parsed here;
// the import session validates it.
func (c *Client) Fetch(ctx context.Context) (payload string, rev string, err error) {
	body, header, err := c.get(ctx, "/v1/export")
	if err != nil {
		return "", "", err
	}
	return string(body), header.Get(HeaderSnapshotRev), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reach peer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read peer response: %w", err)
	}
	if len(body) > MaxPayloadBytes {
		return nil, nil, ErrPayloadTooLarge
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("peer returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return body, resp.Header, nil
}
