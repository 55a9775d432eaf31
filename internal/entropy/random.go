// Package entropy supplies the random draws used by the colony simulation.
// Every probability roll in the engine goes through a Source so tests can
// script outcomes. Live play can draw from random.org and falls back to
// crypto/rand when the API is unavailable.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"net/http"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

const (
	apiURL      = "https://api.random.org/json-rpc/4/invoke"
	poolLow     = 10
	refillBatch = 100
)

// Client provides true random numbers from random.org with a local pool.
// Refills run in the background; draws never wait on the network and use
// crypto/rand while the pool is empty.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	pool      []float64
	refilling bool
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Float64 returns the next pooled value.
func (c *Client) Float64() float64 {
	if !c.Enabled() {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < poolLow && !c.refilling {
		c.refilling = true
		go c.backgroundRefill()
	}
	if len(c.pool) == 0 {
		return cryptoRandFloat()
	}
	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// Pooled returns the number of values waiting to be drawn.
func (c *Client) Pooled() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pool)
}

func (c *Client) backgroundRefill() {
	ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
	defer cancel()
	vals, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refilling = false
	if err != nil {
		slog.Debug("random.org refill failed", "error", err)
		return
	}
	c.pool = append(c.pool, vals...)
	slog.Debug("random.org pool refilled", "count", len(vals))
}

func (c *Client) fetch(ctx context.Context) ([]float64, error) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             refillBatch,
			"decimalPlaces": 6,
		},
		"id": 1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("api error: %s", result.Error.Message)
	}

	vals := make([]float64, 0, len(result.Result.Random.Data))
	for _, v := range result.Result.Random.Data {
		// random.org rounds to 6 places, so 1.0 is possible.
		if v >= 0 && v < 1 {
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Crypto draws from crypto/rand.
type Crypto struct{}

// Float64 implements Source.
func (Crypto) Float64() float64 { return cryptoRandFloat() }

// Seeded is a fast pseudo-random source for local play and benchmarks.
type Seeded struct {
	r *mrand.Rand
}

// NewSeeded returns a PCG source. A zero seed draws one from crypto/rand.
func NewSeeded(seed uint64) *Seeded {
	if seed == 0 {
		seed = uint64(cryptoRandFloat() * (1 << 53))
	}
	return &Seeded{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 implements Source.
func (s *Seeded) Float64() float64 { return s.r.Float64() }

// Default picks the random.org client when configured, otherwise a seeded
// source.
func Default(apiKey string, seed uint64) Source {
	if c := NewClient(apiKey); c != nil {
		return c
	}
	return NewSeeded(seed)
}
