// Package ig implements the broker boundary against the IG Markets REST
// API.
package ig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/igfx/broker"
	"github.com/rustyeddy/igfx/market"
)

const (
	// DemoURL is the IG gateway for demo accounts.
	DemoURL = "https://demo-api.ig.com/gateway/deal"
	// LiveURL is the IG gateway for live accounts.
	LiveURL = "https://api.ig.com/gateway/deal"

	snapshotTimeLayout = "2006/01/02 15:04:05"
	transactionLayout  = "2006-01-02T15:04:05"
)

// Config holds the IG session parameters. Credentials come from the
// environment, never from the config file.
type Config struct {
	APIKey      string
	Identifier  string
	Password    string
	AccountType string // "DEMO" or "LIVE"
	AccountID   string // optional; switches the session after login
	BaseURL     string // override for tests
}

var _ broker.Broker = (*Client)(nil)

// Client is an authenticated IG REST client. Safe for use from the runner
// goroutine; the session tokens are guarded for the re-login path.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	mu            sync.Mutex
	cst           string
	securityToken string
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		if strings.EqualFold(cfg.AccountType, "LIVE") {
			cfg.BaseURL = LiveURL
		} else {
			cfg.BaseURL = DemoURL
		}
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		log:     log.With().Str("component", "ig").Logger(),
	}
}

type sessionRequest struct {
	Identifier        string `json:"identifier"`
	Password          string `json:"password"`
	EncryptedPassword bool   `json:"encryptedPassword"`
}

// Login creates an IG session and captures the CST and security tokens.
// When an account ID is configured it also switches the session to it.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(sessionRequest{Identifier: c.cfg.Identifier, Password: c.cfg.Password})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/session", bytes.NewReader(body), "2")
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("ig login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("login", resp)
	}

	c.mu.Lock()
	c.cst = resp.Header.Get("CST")
	c.securityToken = resp.Header.Get("X-SECURITY-TOKEN")
	c.mu.Unlock()

	c.log.Info().Str("account_type", c.cfg.AccountType).Msg("IG session created")

	if c.cfg.AccountID != "" {
		if err := c.switchAccount(ctx, c.cfg.AccountID); err != nil {
			// Not fatal: the default account still trades.
			c.log.Warn().Err(err).Str("account", c.cfg.AccountID).Msg("could not switch account")
		}
	}
	return nil
}

func (c *Client) switchAccount(ctx context.Context, accountID string) error {
	body, err := json.Marshal(map[string]any{"accountId": accountID, "defaultAccount": false})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/session", bytes.NewReader(body), "1")
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError("switch account", resp)
	}
	return nil
}

// Logout ends the IG session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/session", nil, "1")
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError("logout", resp)
	}
	c.log.Info().Msg("logged out from IG")
	return nil
}

type pricePoint struct {
	Bid *float64 `json:"bid"`
	Ask *float64 `json:"ask"`
}

func (p pricePoint) value() float64 {
	// The bot trades off bid candles, matching the history normalization.
	if p.Bid != nil {
		return *p.Bid
	}
	if p.Ask != nil {
		return *p.Ask
	}
	return 0
}

type apiPrice struct {
	SnapshotTime     string     `json:"snapshotTime"`
	OpenPrice        pricePoint `json:"openPrice"`
	HighPrice        pricePoint `json:"highPrice"`
	LowPrice         pricePoint `json:"lowPrice"`
	ClosePrice       pricePoint `json:"closePrice"`
	LastTradedVolume float64    `json:"lastTradedVolume"`
}

type pricesResponse struct {
	Prices []apiPrice `json:"prices"`
}

// GetCandles fetches historical bars for the epic. Any upstream error is
// returned as-is; the runner degrades it to an empty series.
func (c *Client) GetCandles(ctx context.Context, epic, resolution string, count int) ([]market.Candle, error) {
	path := fmt.Sprintf("/prices/%s/%s/%d", epic, resolution, count)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "2")
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("ig prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("prices", resp)
	}

	var pr pricesResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	candles := make([]market.Candle, 0, len(pr.Prices))
	for _, p := range pr.Prices {
		ts, err := time.Parse(snapshotTimeLayout, p.SnapshotTime)
		if err != nil {
			c.log.Warn().Str("snapshot", p.SnapshotTime).Msg("skipping bar with unparseable time")
			continue
		}
		candles = append(candles, market.Candle{
			Time:   ts.UTC(),
			Open:   p.OpenPrice.value(),
			High:   p.HighPrice.value(),
			Low:    p.LowPrice.value(),
			Close:  p.ClosePrice.value(),
			Volume: p.LastTradedVolume,
		})
	}
	market.SortByTime(candles)
	return candles, nil
}

type otcOrder struct {
	Epic           string   `json:"epic"`
	Expiry         string   `json:"expiry"`
	Direction      string   `json:"direction"`
	Size           float64  `json:"size"`
	OrderType      string   `json:"orderType"`
	GuaranteedStop bool     `json:"guaranteedStop"`
	ForceOpen      bool     `json:"forceOpen"`
	StopLevel      *float64 `json:"stopLevel,omitempty"`
	LimitLevel     *float64 `json:"limitLevel,omitempty"`
	CurrencyCode   string   `json:"currencyCode,omitempty"`
	DealReference  string   `json:"dealReference,omitempty"`
}

// CreateMarketOrder submits an OTC market position. Transient failures are
// retried with exponential backoff; an exhausted retry budget surfaces as
// an error and the runner treats the order as not confirmed.
func (c *Client) CreateMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderConfirmation, error) {
	order := otcOrder{
		Epic:           req.Epic,
		Expiry:         "-",
		Direction:      string(req.Direction),
		Size:           req.Size,
		OrderType:      "MARKET",
		GuaranteedStop: false,
		ForceOpen:      true,
		StopLevel:      req.StopLevel,
		LimitLevel:     req.LimitLevel,
		CurrencyCode:   req.Currency,
		DealReference:  req.Reference,
	}
	body, err := json.Marshal(order)
	if err != nil {
		return broker.OrderConfirmation{}, err
	}

	var conf broker.OrderConfirmation
	operation := func() error {
		httpReq, err := c.newRequest(ctx, http.MethodPost, "/positions/otc", bytes.NewReader(body), "2")
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authorize(httpReq)

		resp, err := c.do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ig order http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var parsed struct {
			DealReference string `json:"dealReference"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode order response: %w", err))
		}
		conf = broker.OrderConfirmation{DealReference: parsed.DealReference, Raw: raw}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return broker.OrderConfirmation{}, fmt.Errorf("submit order %s %s: %w", req.Direction, req.Epic, err)
	}

	c.log.Info().
		Str("epic", req.Epic).
		Str("direction", string(req.Direction)).
		Float64("size", req.Size).
		Str("deal_ref", conf.DealReference).
		Msg("market order submitted")
	return conf, nil
}

// ClosePosition closes an open OTC position at market. IG models this as a
// POST with a method override header.
func (c *Client) ClosePosition(ctx context.Context, dealID string, direction broker.Direction, size float64) error {
	body, err := json.Marshal(map[string]any{
		"dealId":    dealID,
		"direction": string(direction),
		"size":      size,
		"orderType": "MARKET",
	})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/positions/otc", bytes.NewReader(body), "1")
	if err != nil {
		return err
	}
	req.Header.Set("_method", "DELETE")
	c.authorize(req)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError("close position", resp)
	}
	return nil
}

type apiTransaction struct {
	Reference      string `json:"reference"`
	InstrumentName string `json:"instrumentName"`
	ProfitAndLoss  string `json:"profitAndLoss"`
	DateUTC        string `json:"dateUtc"`
}

type transactionsResponse struct {
	Transactions []apiTransaction `json:"transactions"`
}

// ClosedTransactions lists deals settled since the given time, used by the
// runner to reconcile realized PnL into the risk governor.
func (c *Client) ClosedTransactions(ctx context.Context, since time.Time) ([]broker.Transaction, error) {
	path := "/history/transactions?type=ALL_DEAL&from=" + since.UTC().Format(transactionLayout)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "2")
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("ig transactions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("transactions", resp)
	}

	var tr transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]broker.Transaction, 0, len(tr.Transactions))
	for _, tx := range tr.Transactions {
		pnl, err := parseCurrencyAmount(tx.ProfitAndLoss)
		if err != nil {
			c.log.Warn().Str("reference", tx.Reference).Str("pnl", tx.ProfitAndLoss).
				Msg("skipping transaction with unparseable PnL")
			continue
		}
		date, err := time.Parse(transactionLayout, tx.DateUTC)
		if err != nil {
			date = time.Time{}
		}
		out = append(out, broker.Transaction{
			Reference:  tx.Reference,
			Instrument: tx.InstrumentName,
			ProfitLoss: pnl,
			Date:       date.UTC(),
		})
	}
	return out, nil
}

// parseCurrencyAmount parses IG's currency-prefixed amounts, e.g. "E12.30"
// or "-£4.50".
func parseCurrencyAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	start := 0
	for start < len(s) {
		ch := s[start]
		if ch >= '0' && ch <= '9' || ch == '.' {
			break
		}
		start++
	}
	s = strings.ReplaceAll(s[start:], ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, version string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-IG-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	req.Header.Set("VERSION", version)
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req.Header.Set("CST", c.cst)
	req.Header.Set("X-SECURITY-TOKEN", c.securityToken)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return fmt.Errorf("ig %s http %d: %s", op, resp.StatusCode, strings.TrimSpace(string(b)))
}
