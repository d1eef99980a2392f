package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
)

var (
	ErrNotFound    = errors.New("currency pair not found")
	ErrUnavailable = errors.New("quote provider unavailable")
)

type Config struct {
	URL          string        `split_words:"true" default:"https://economia.awesomeapi.com.br"`
	HomeCurrency string        `split_words:"true" default:"BRL"`
	Timeout      time.Duration `split_words:"true" default:"5s"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"30s"`
}

// Rate is the latest bid of Code priced in Home.
type Rate struct {
	Code string
	Home string
	Name string
	Bid  float64
}

// Client reads the latest quote of a currency pair from an AwesomeAPI-compatible
// endpoint: GET {url}/last/{CODE}-{HOME}.
type Client struct {
	baseURL      string
	homeCurrency string
	httpClient   *http.Client
	cache        *cache.Cache
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("quote url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	home := strings.ToUpper(strings.TrimSpace(cfg.HomeCurrency))
	if home == "" {
		home = "BRL"
	}

	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		homeCurrency: home,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache.New(ttl, 2*ttl),
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) HomeCurrency() string {
	return c.homeCurrency
}

type pairQuote struct {
	Code   string `json:"code"`
	Codein string `json:"codein"`
	Name   string `json:"name"`
	Bid    string `json:"bid"`
}

// Latest returns the current bid for code against home; an empty home uses the
// configured one. Successful answers are cached for the configured TTL.
func (c *Client) Latest(ctx context.Context, code string, home string) (Rate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	home = strings.ToUpper(strings.TrimSpace(home))
	if home == "" {
		home = c.homeCurrency
	}
	if code == "" {
		return Rate{}, fmt.Errorf("%w: empty currency code", ErrNotFound)
	}

	pair := code + "-" + home
	if v, ok := c.cache.Get(pair); ok {
		return v.(Rate), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/last/"+url.PathEscape(pair), nil)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Rate{}, fmt.Errorf("%w: %s", ErrNotFound, pair)
	case resp.StatusCode != http.StatusOK:
		return Rate{}, fmt.Errorf("%w: status %d for %s", ErrUnavailable, resp.StatusCode, pair)
	}

	var body map[string]pairQuote
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Rate{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, pair, err)
	}

	q, ok := body[code+home]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s", ErrNotFound, pair)
	}
	bid, err := strconv.ParseFloat(strings.TrimSpace(q.Bid), 64)
	if err != nil || bid <= 0 {
		return Rate{}, fmt.Errorf("%w: bad bid %q for %s", ErrUnavailable, q.Bid, pair)
	}

	rate := Rate{Code: code, Home: home, Name: q.Name, Bid: bid}
	c.cache.SetDefault(pair, rate)
	return rate, nil
}
