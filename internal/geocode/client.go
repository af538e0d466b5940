// Package geocode talks to a Nominatim-compatible reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trailmark/routecapture/pkg/core"
)

var (
	// ErrRateLimited is returned when the service answers 429.
	ErrRateLimited = errors.New("geocoder rate limit exceeded")
	// ErrNotFound is returned when the service has no place for the coordinate.
	ErrNotFound = errors.New("no place found")
)

// Client performs reverse geocode lookups.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLanguage sets the accept-language parameter.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithUserAgent sets the User-Agent header. Public Nominatim requires one.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new geocode client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "routecapture",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reverseResponse struct {
	Error   string `json:"error,omitempty"`
	Address struct {
		Road         string `json:"road"`
		Pedestrian   string `json:"pedestrian"`
		Footway      string `json:"footway"`
		Path         string `json:"path"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		Country      string `json:"country"`
	} `json:"address"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ReverseGeocode looks up the place at lat/lng.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (core.Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	if c.language != "" {
		q.Set("accept-language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return core.Place{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Place{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return core.Place{}, ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return core.Place{}, fmt.Errorf("geocoder error %d: %s", resp.StatusCode, string(body))
	}

	var r reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return core.Place{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if r.Error != "" {
		return core.Place{}, fmt.Errorf("%w: %s", ErrNotFound, r.Error)
	}

	a := r.Address
	return core.Place{
		Street:  firstNonEmpty(a.Road, a.Pedestrian, a.Footway, a.Path),
		City:    firstNonEmpty(a.City, a.Town, a.Village, a.Municipality),
		Country: a.Country,
	}, nil
}

// Healthcheck checks if the geocoding service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status?format=json", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}
