package platform

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

	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

const winsPath = "/rest/v1/raffle_wins"

// PrizeLookup resolves a stored (tier, prize name) pair back to its prize.
type PrizeLookup interface {
	Lookup(tier, prize string) (wheel.Prize, bool)
}

// Client writes and reads the hosted raffle_wins table through the backend's
// REST interface. The API key is sent both as apikey and as a bearer token.
//
// The table only has branch, tier and prize_name, so List fills icon and jackpot
// from prizes. prizes may be nil.
type Client struct {
	baseURL string
	apiKey  string
	prizes  PrizeLookup
	http    *http.Client
}

func NewClient(baseURL, apiKey string, prizes PrizeLookup) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prizes:  prizes,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// winRow is the table's column set.
type winRow struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Branch    string          `json:"branch"`
	Tier      string          `json:"tier"`
	PrizeName string          `json:"prize_name"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Record inserts one win row.
func (c *Client) Record(ctx context.Context, o round.Outcome) error {
	body, err := json.Marshal([]winRow{{
		Branch:    o.Branch,
		Tier:      o.Tier,
		PrizeName: o.PrizeName,
		CreatedAt: o.SettledAt,
	}})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, winsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform: insert raffle win: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	return nil
}

// List reads win rows newest first.
func (c *Client) List(ctx context.Context, q round.Query) ([]round.Outcome, error) {
	v := url.Values{}
	v.Set("select", "*")
	v.Set("order", "created_at.desc")
	if q.Branch != "" {
		v.Set("branch", "eq."+q.Branch)
	}
	if q.Tier != "" {
		v.Set("tier", "eq."+q.Tier)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	req, err := c.newRequest(ctx, http.MethodGet, winsPath+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: list raffle wins: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var rows []winRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("platform: decode raffle wins: %w", err)
	}
	out := make([]round.Outcome, 0, len(rows))
	for _, r := range rows {
		o := round.Outcome{
			ID:        strings.Trim(string(r.ID), `"`),
			Branch:    r.Branch,
			Tier:      r.Tier,
			PrizeName: r.PrizeName,
			SettledAt: r.CreatedAt,
		}
		if c.prizes != nil {
			if p, ok := c.prizes.Lookup(r.Tier, r.PrizeName); ok {
				o.Icon, o.Jackpot = p.Icon, p.Jackpot
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var data struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &data)
	msg := data.Message
	if msg == "" {
		msg = data.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("platform: %d: %s", resp.StatusCode, msg)
}
