// Package operator pushes settled wins to the shop operator's callback URL.
package operator

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Ashenafi-pixel/raffle-wheel/round"
)

type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

type Response struct {
	Code       int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func NewClient(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) call(ctx context.Context, params map[string]string) (*Response, error) {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if c.secret != "" {
		values.Set("signature", c.sign(values))
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	u.RawQuery = values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out := &Response{StatusCode: resp.StatusCode}
	_ = json.NewDecoder(resp.Body).Decode(out)
	return out, nil
}

// sign is HMAC-SHA256 over the values of every key except action, in key order.
func (c *Client) sign(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		if k == "action" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := make([]byte, 0, 256)
	for _, k := range keys {
		buf = append(buf, v.Get(k)...)
	}
	m := hmac.New(sha256.New, []byte(c.secret))
	m.Write(buf)
	return hex.EncodeToString(m.Sum(nil))
}

// Record sends action=raffle_win. A non-2xx status or a non-zero code is an error.
func (c *Client) Record(ctx context.Context, o round.Outcome) error {
	resp, err := c.call(ctx, map[string]string{
		"action":     "raffle_win",
		"win_id":     o.ID,
		"branch":     o.Branch,
		"tier":       o.Tier,
		"prize_name": o.PrizeName,
		"jackpot":    strconv.FormatBool(o.Jackpot),
		"created_at": o.SettledAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("operator: raffle_win: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || resp.Code != 0 {
		return fmt.Errorf("operator: raffle_win: status %d code %d: %s", resp.StatusCode, resp.Code, resp.Message)
	}
	return nil
}
