package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToFlags(t *testing.T) {
	tests := []struct {
		name string
		in   *Conditions
		want Flags
	}{
		{"nil", nil, Flags{}},
		{"calm snow", &Conditions{Temp: -5, IsSnow: true, WindSpeed: 3}, Flags{}},
		{"windy snow", &Conditions{Temp: -5, IsSnow: true, WindSpeed: 12}, Flags{Blizzard: true}},
		{"deep cold", &Conditions{Temp: -31}, Flags{ColdSnap: true}},
		{"storm and cold", &Conditions{Temp: -40, IsSnow: true, IsStorm: true}, Flags{Blizzard: true, ColdSnap: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapToFlags(tt.in))
		})
	}
}

func TestFetchParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"main":{"temp":-28.5},"weather":[{"main":"Snow","description":"heavy snow"}],"wind":{"speed":16}}`))
	}))
	defer srv.Close()

	c := NewClient("key", "Nowhere")
	c.baseURL = srv.URL

	cond, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -28.5, cond.Temp)
	assert.True(t, cond.IsSnow)
	assert.True(t, cond.IsStorm)
	assert.Equal(t, Flags{Blizzard: true, ColdSnap: true}, MapToFlags(cond))

	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchBacksOffAfterFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("key", "")
	c.baseURL = srv.URL

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewClientDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewClient("", "x"))
}

func TestFrontIsDeterministicAndGated(t *testing.T) {
	a, b := NewFront(9), NewFront(9)
	for day := 1; day < 20; day++ {
		for tod := 0.0; tod < 100; tod += 12.5 {
			assert.Equal(t, a.Conditions(day, tod), b.Conditions(day, tod))
			v := a.Intensity(day, tod)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	f := NewFront(1)
	f.BlizzardAbove = -1
	f.ColdSnapAbove = -1
	assert.Equal(t, Flags{}, f.Conditions(1, 50))
	assert.Equal(t, Flags{Blizzard: true}, f.Conditions(2, 50))
	assert.Equal(t, Flags{Blizzard: true, ColdSnap: true}, f.Conditions(5, 50))
}

func TestFeedPrefersFreshLiveData(t *testing.T) {
	front := NewFront(3)
	front.BlizzardAbove = 2 // never
	front.ColdSnapAbove = 2
	feed := NewFeed(front, nil)

	assert.Equal(t, Flags{}, feed.Conditions(10, 50))

	feed.live = &Flags{Blizzard: true}
	feed.liveAt = time.Now()
	assert.Equal(t, Flags{Blizzard: true}, feed.Conditions(10, 50))

	feed.liveAt = time.Now().Add(-time.Hour)
	assert.Equal(t, Flags{}, feed.Conditions(10, 50))
}
