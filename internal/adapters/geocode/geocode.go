// Package geocode resolves coordinates to postal addresses through a
// Nominatim-compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bracketlab/tiering/internal/domain/model"
)

const defaultEndpoint = "https://nominatim.openstreetmap.org"

// Observer is notified on each retried lookup attempt.
type Observer interface {
	GeocodeRetry()
}

// Client is a reverse geocoding client. It implements tiering.Geocoder.
type Client struct {
	httpc     *http.Client
	endpoint  string
	userAgent string
	retries   int
	obs       Observer
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// WithEndpoint overrides the geocoding endpoint.
func WithEndpoint(endpoint string) Option {
	return func(cl *Client) {
		if endpoint != "" {
			cl.endpoint = endpoint
		}
	}
}

// WithUserAgent sets the User-Agent header. Public Nominatim rejects
// requests without one.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithRetries bounds how many attempts a lookup makes.
func WithRetries(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.retries = n
		}
	}
}

// WithObserver registers a retry observer.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		if o != nil {
			cl.obs = o
		}
	}
}

// NewClient creates a client with defaults for the public OSM service.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpc:     &http.Client{Timeout: 10 * time.Second},
		endpoint:  defaultEndpoint,
		userAgent: "tiering",
		retries:   5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	Address struct {
		CountryCode string `json:"country_code"`
		ISOLevel3   string `json:"ISO3166-2-lvl3"`
		ISOLevel4   string `json:"ISO3166-2-lvl4"`
		County      string `json:"county"`
		City        string `json:"city"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// Reverse resolves lat/lng to an address, retrying transient failures.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (model.Address, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 && c.obs != nil {
			c.obs.GeocodeRetry()
		}
		addr, err := c.lookup(ctx, lat, lng)
		if err == nil {
			return addr, nil
		}
		if ctx.Err() != nil {
			return model.Address{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		}
		lastErr = err
	}
	return model.Address{}, fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, c.retries, lastErr)
}

func (c *Client) lookup(ctx context.Context, lat, lng float64) (model.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return model.Address{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return model.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Address{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return model.Address{}, fmt.Errorf("decode: %w", err)
	}

	return model.Address{
		CountryCode: decoded.Address.CountryCode,
		ISOLevel3:   decoded.Address.ISOLevel3,
		ISOLevel4:   decoded.Address.ISOLevel4,
		County:      decoded.Address.County,
		City:        decoded.Address.City,
		Postcode:    decoded.Address.Postcode,
	}, nil
}
