package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vreyes/stakecraft/engine/session"
	"github.com/vreyes/stakecraft/types"
)

// Client talks to the companion backend over HTTP. It implements
// session.DaySyncer.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type createSessionRequest struct {
	PlayerName string `json:"player_name"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession registers a new session and returns its backend id.
func (c *Client) CreateSession(ctx context.Context, playerName string) (string, error) {
	var resp createSessionResponse
	err := c.post(ctx, c.baseURL+"/sessions", createSessionRequest{PlayerName: playerName}, &resp)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return resp.SessionID, nil
}

type resolveDayRequest struct {
	Comparisons []types.ComparisonResult `json:"comparisons"`
}

// ResolveDay posts a completed day's comparisons and returns the stat
// deltas the backend computed for it.
func (c *Client) ResolveDay(sessionID string, day int, comparisons []types.ComparisonResult) (session.DayDeltas, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/sessions/%s/resolve_day_effects?day=%d", c.baseURL, sessionID, day)
	var deltas session.DayDeltas
	if err := c.post(ctx, url, resolveDayRequest{Comparisons: comparisons}, &deltas); err != nil {
		return session.DayDeltas{}, fmt.Errorf("resolving day %d: %w", day, err)
	}
	return deltas, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
