// Storm fronts generated from coherent noise, plus the feed that prefers
// live weather when it is available.
package weather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Front produces blizzards and cold snaps that drift smoothly over
// simulated time, so storms last for a while instead of flickering.
type Front struct {
	noise opensimplex.Noise

	// Frequency is in noise units per day.
	Frequency float64
	// BlizzardAbove and ColdSnapAbove are thresholds on the [0,1) noise value.
	BlizzardAbove float64
	ColdSnapAbove float64
	// Storms stay away until these days are reached.
	BlizzardFromDay int
	ColdSnapFromDay int
}

// NewFront creates a storm front from a seed.
func NewFront(seed int64) *Front {
	return &Front{
		noise:           opensimplex.NewNormalized(seed),
		Frequency:       0.9,
		BlizzardAbove:   0.72,
		ColdSnapAbove:   0.88,
		BlizzardFromDay: 2,
		ColdSnapFromDay: 5,
	}
}

// Intensity returns the storm strength in [0,1) at a point in time.
func (f *Front) Intensity(day int, timeOfDay float64) float64 {
	t := float64(day) + timeOfDay/100
	return octaveNoise(f.noise, t*f.Frequency, 0.5, 3, 0.5)
}

// Conditions implements the simulation's climate feed.
func (f *Front) Conditions(day int, timeOfDay float64) Flags {
	v := f.Intensity(day, timeOfDay)
	return Flags{
		Blizzard: day >= f.BlizzardFromDay && v > f.BlizzardAbove,
		ColdSnap: day >= f.ColdSnapFromDay && v > f.ColdSnapAbove,
	}
}

// octaveNoise layers frequencies of normalized noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := 1.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Feed combines a storm front with live conditions. Live data wins while
// it is fresh; the front covers the gaps.
type Feed struct {
	Front  *Front
	Client *Client

	mu      sync.RWMutex
	live    *Flags
	liveAt  time.Time
	liveTTL time.Duration
}

// NewFeed wires a front and an optional live client.
func NewFeed(front *Front, client *Client) *Feed {
	return &Feed{Front: front, Client: client, liveTTL: 15 * time.Minute}
}

// Conditions returns the climate flags for the given time.
func (f *Feed) Conditions(day int, timeOfDay float64) Flags {
	f.mu.RLock()
	live, at := f.live, f.liveAt
	f.mu.RUnlock()

	if live != nil && time.Since(at) < f.liveTTL {
		return *live
	}
	if f.Front == nil {
		return Flags{}
	}
	return f.Front.Conditions(day, timeOfDay)
}

// Run polls the live client until ctx is cancelled. It returns at once
// when no client is configured.
func (f *Feed) Run(ctx context.Context, every time.Duration) {
	if f.Client == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	f.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.refresh(ctx)
		}
	}
}

func (f *Feed) refresh(ctx context.Context) {
	c, err := f.Client.Fetch(ctx)
	if err != nil {
		slog.Warn("live weather unavailable, using storm front", "error", err)
		return
	}
	flags := MapToFlags(c)
	f.mu.Lock()
	f.live = &flags
	f.liveAt = time.Now()
	f.mu.Unlock()
	slog.Info("live weather", "desc", c.Description, "temp", c.Temp,
		"blizzard", flags.Blizzard, "cold_snap", flags.ColdSnap)
}
