// Package ltiaas is the client for the remote launch and grading service.
// Every call reads the base URL and API key from the settings provider,
// is bounded by the client timeouts and is never retried.
package ltiaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
)

const (
	ConnectTimeout = 5 * time.Second
	RequestTimeout = 10 * time.Second
)

type Client struct {
	Settings config.Provider
	HTTP     *http.Client
	Logger   *slog.Logger

	breaker *gobreaker.CircuitBreaker[*http.Response]
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.HTTP = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.Logger = l } }

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker[*http.Response](st) }
}

func New(settings config.Provider, opts ...Option) *Client {
	c := &Client{
		Settings: settings,
		HTTP: &http.Client{
			Timeout: RequestTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
				TLSHandshakeTimeout: ConnectTimeout,
				MaxIdleConnsPerHost: 4,
			},
		},
		Logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        "ltiaas",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.Logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return c
}

// IDToken redeems a launch key for the launch payload.
func (c *Client) IDToken(ctx context.Context, ltik string) (IDToken, error) {
	const op = "get idtoken"
	st, err := c.Settings.Settings(ctx)
	if err != nil {
		return IDToken{}, &TransportError{Op: op, Err: err}
	}
	u, err := JoinPath(st.LTIAASURL, "/api/idtoken")
	if err != nil {
		return IDToken{}, &TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return IDToken{}, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", ltikAuth(ltik, st.LTIAASAPIKey))

	resp, err := c.do(req)
	if err != nil {
		return IDToken{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return IDToken{}, &TransportError{Op: op, Status: resp.StatusCode}
	}
	var tok IDToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return IDToken{}, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return tok, nil
}

// PostScore pushes s to the first line item reachable with serviceKey.
func (c *Client) PostScore(ctx context.Context, s Score, serviceKey string) error {
	const op = "post score"
	st, err := c.Settings.Settings(ctx)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	items, err := c.lineItems(ctx, st, serviceKey)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return &RemoteError{Op: op, Message: ErrNoLineItem}
	}
	u, err := JoinPath(st.LTIAASURL, "/api/lineitems/"+url.QueryEscape(items[0].ID)+"/scores")
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	body, _ := json.Marshal(s)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", serviceAuth(st.LTIAASAPIKey, serviceKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return remoteErr(op, resp)
	}
	drain(resp)
	return nil
}

func (c *Client) lineItems(ctx context.Context, st config.Settings, serviceKey string) ([]LineItem, error) {
	const op = "get lineitems"
	u, err := JoinPath(st.LTIAASURL, "/api/lineitems")
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", serviceAuth(st.LTIAASAPIKey, serviceKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteErr(op, resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return decodeLineItems(raw)
}

// decodeLineItems accepts a bare array or a {"lineItems": [...]} envelope.
func decodeLineItems(raw []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var env struct {
		LineItems []LineItem `json:"lineItems"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &TransportError{Op: "get lineitems", Status: http.StatusOK, Err: fmt.Errorf("decode: %w", err)}
	}
	return env.LineItems, nil
}

// DeepLinkingForm asks the remote service to build the deep linking
// response form for the selected item.
func (c *Client) DeepLinkingForm(ctx context.Context, item ContentItem, ltik string) (Form, error) {
	const op = "get deep linking form"
	st, err := c.Settings.Settings(ctx)
	if err != nil {
		return Form{}, &TransportError{Op: op, Err: err}
	}
	u, err := JoinPath(st.LTIAASURL, "/api/deeplinking/form")
	if err != nil {
		return Form{}, &TransportError{Op: op, Err: err}
	}
	body, _ := json.Marshal(item)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Form{}, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", ltikAuth(ltik, st.LTIAASAPIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return Form{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return Form{}, remoteErr(op, resp)
	}
	var f Form
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return Form{}, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return f, nil
}

// do sends req through the circuit breaker. Only transport failures count
// against the breaker; any response is handed back to the caller.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.HTTP.Do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("remote service unavailable: %w", err)
	}
	return resp, err
}

func ltikAuth(ltik, apiKey string) string {
	return "LTIK-AUTH-V1 Token=" + ltik + ", Additional=Bearer " + apiKey
}

func serviceAuth(apiKey, serviceKey string) string {
	return "SERVICE-AUTH-V1 " + apiKey + ":" + serviceKey
}

func remoteErr(op string, resp *http.Response) error {
	var b errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &b)
	return &RemoteError{Op: op, Status: resp.StatusCode, Message: b.message(resp.StatusCode)}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
}
