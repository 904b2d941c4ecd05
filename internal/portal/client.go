// Package portal reads the prepaid balances of a dorm room from the campus card portal.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"prepaid-usage-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://ycard.ahu.edu.cn"
	DefaultTimeout = 30 * time.Second

	balancePath = "/charge/feeitem/getThirdData"
	balanceKey  = "信息"
	authHeader  = "synjones-auth"
)

// Portal errors.
var (
	// ErrMissingBalance is returned when the response has no balance field.
	ErrMissingBalance = errors.New("balance field missing in portal response")

	// ErrInvalidTokenURL is returned when no token can be extracted from a portal URL.
	ErrInvalidTokenURL = errors.New("could not find valid token info in URL string")
)

// BalanceFetcher fetches one balance reading.
type BalanceFetcher interface {
	FetchBalances(ctx context.Context) (domain.Sample, error)
}

// Client implements BalanceFetcher over the portal HTTP API.
// Requests are sent once; failures are returned to the caller.
type Client struct {
	baseURL   string
	client    *http.Client
	lightForm url.Values
	acForm    url.Values
	headers   map[string]string
	now       func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeaders adds request headers sent with every balance query.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithAuthToken sets the bearer token the portal expects in the synjones-auth header.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.headers[authHeader] = "bearer " + token
	}
}

// WithClock overrides the clock used to stamp readings.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a portal client. lightRoom and acRoom are the form
// fields (feeitemid, campus, building, room...) that select each account.
func NewClient(baseURL string, lightRoom, acRoom map[string]string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: DefaultTimeout},
		lightForm: toValues(lightRoom),
		acForm:    toValues(acRoom),
		headers:   make(map[string]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ BalanceFetcher = (*Client)(nil)

// FetchBalances queries both accounts and returns a reading stamped with the current time.
func (c *Client) FetchBalances(ctx context.Context) (domain.Sample, error) {
	light, err := c.fetchBalance(ctx, c.lightForm)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("fetch light balance: %w", err)
	}

	ac, err := c.fetchBalance(ctx, c.acForm)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("fetch ac balance: %w", err)
	}

	now := c.now()
	return domain.Sample{
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Light:     light,
		AC:        ac,
	}, nil
}

// balanceResponse is the subset of the portal payload we read.
type balanceResponse struct {
	Map struct {
		ShowData map[string]string `json:"showData"`
	} `json:"map"`
}

func (c *Client) fetchBalance(ctx context.Context, form url.Values) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+balancePath, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed balanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}

	info, ok := parsed.Map.ShowData[balanceKey]
	if !ok {
		return 0, ErrMissingBalance
	}
	return ParseBalance(info)
}

var nonDigit = regexp.MustCompile(`\D`)

// ParseBalance extracts the balance from a portal info string such as
// "剩余电量:12.34". All non-digit characters are dropped and the
// remaining integer is read as hundredths.
func ParseBalance(info string) (float64, error) {
	digits := nonDigit.ReplaceAllString(info, "")
	if digits == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrMissingBalance, info)
	}

	cents, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", info, err)
	}
	return float64(cents) / 100, nil
}

var tokenPattern = regexp.MustCompile(`token=([a-zA-Z0-9]*\.[a-zA-Z0-9]*\..*?)#`)

// ExtractToken pulls the JWT out of an authorized portal page URL.
// The portal embeds it as token=<jwt># in the URL fragment.
func ExtractToken(rawURL string) (string, error) {
	m := tokenPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", ErrInvalidTokenURL
	}
	return m[1], nil
}

func toValues(m map[string]string) url.Values {
	v := make(url.Values, len(m))
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}
