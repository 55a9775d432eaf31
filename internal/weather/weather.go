// Package weather decides when blizzards and cold snaps hit the colony.
// Conditions come from real-world weather when an OpenWeatherMap key is
// configured, otherwise from a noise-driven storm front.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	owmURL          = "https://api.openweathermap.org/data/2.5/weather"
	defaultLocation = "Yellowknife,CA"
	cacheTTL        = 5 * time.Minute
	minBackoff      = time.Minute
	maxBackoff      = 10 * time.Minute
)

// Flags are the climate switches the simulation reads each tick.
type Flags struct {
	Blizzard bool `json:"blizzard"`
	ColdSnap bool `json:"cold_snap"`
}

// Conditions is the subset of a weather report the colony cares about.
type Conditions struct {
	Temp        float64 `json:"temp"` // Celsius
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
	IsStorm     bool    `json:"is_storm"`
	IsSnow      bool    `json:"is_snow"`
}

// Client fetches conditions for one location from OpenWeatherMap. Replies
// are cached; failures back off exponentially and serve the last good
// report when there is one.
type Client struct {
	apiKey   string
	location string
	baseURL  string
	http     *http.Client

	mu      sync.Mutex
	last    *Conditions
	lastAt  time.Time
	retryAt time.Time
	backoff time.Duration
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey, location string) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = defaultLocation
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		baseURL:  owmURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns current conditions, from cache while fresh.
func (c *Client) Fetch(ctx context.Context) (*Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.last != nil && now.Sub(c.lastAt) < cacheTTL {
		return c.last, nil
	}
	if now.Before(c.retryAt) {
		if c.last != nil {
			return c.last, nil
		}
		return nil, fmt.Errorf("weather API backoff (%s remaining)", c.retryAt.Sub(now).Round(time.Second))
	}

	cond, err := c.request(ctx)
	if err != nil {
		c.backoff = min(max(c.backoff*2, minBackoff), maxBackoff)
		c.retryAt = now.Add(c.backoff)
		if c.last != nil {
			return c.last, nil
		}
		return nil, err
	}
	c.last, c.lastAt = cond, now
	c.backoff, c.retryAt = 0, time.Time{}
	return cond, nil
}

// owmReport mirrors the fields read from a current-weather reply.
type owmReport struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (r owmReport) conditions() *Conditions {
	c := &Conditions{Temp: r.Main.Temp, WindSpeed: r.Wind.Speed}
	if len(r.Weather) > 0 {
		c.Description = r.Weather[0].Description
		kind := strings.ToLower(r.Weather[0].Main)
		c.IsSnow = kind == "snow"
		c.IsStorm = kind == "thunderstorm" || c.WindSpeed > 15
	}
	return c
}

func (c *Client) request(ctx context.Context) (*Conditions, error) {
	q := url.Values{}
	q.Set("q", c.location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var report owmReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	cond := report.conditions()
	slog.Debug("weather fetched", "location", c.location, "temp", cond.Temp, "desc", cond.Description)
	return cond, nil
}

// Real-world thresholds.
const (
	blizzardWind  = 10.0 // m/s of wind with snow
	coldSnapBelow = -25.0
)

// MapToFlags converts real weather to colony climate flags. Snow in a
// strong wind, or any storm with snow, is a blizzard; deep cold is a
// cold snap.
func MapToFlags(c *Conditions) Flags {
	if c == nil {
		return Flags{}
	}
	return Flags{
		Blizzard: c.IsSnow && (c.IsStorm || c.WindSpeed >= blizzardWind),
		ColdSnap: c.Temp <= coldSnapBelow,
	}
}
