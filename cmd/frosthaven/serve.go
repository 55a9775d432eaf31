package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/frost-haven/internal/api"
	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/config"
	"github.com/talgya/frost-haven/internal/engine"
	"github.com/talgya/frost-haven/internal/entropy"
	"github.com/talgya/frost-haven/internal/llm"
	"github.com/talgya/frost-haven/internal/persistence"
	"github.com/talgya/frost-haven/internal/weather"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the colony and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.Path, "slot", cfg.Storage.Slot)

	state, resumed := loadColony(ctx, db, cfg.Storage.Slot)

	// ── Simulation ────────────────────────────────────────────────────
	rnd := randomSource(cfg)
	sim := engine.NewSimulation(state, rnd)
	sim.DayLength = cfg.Sim.DayLength
	sim.Injector.Cadence = cfg.Sim.EventCadence
	sim.Muted = cfg.Sim.Muted
	if resumed {
		restoreProgress(ctx, db, cfg.Storage.Slot, sim)
	}

	feed := weather.NewFeed(weather.NewFront(frontSeed(cfg)), weather.NewClient(cfg.Keys.Weather, cfg.Weather.Location))
	sim.Climate = feed
	if feed.Client != nil {
		slog.Info("live weather enabled", "location", cfg.Weather.Location)
	}

	hub := api.NewHub()
	sim.Effects = hub
	sim.Cues = hub

	eng := engine.NewEngine(sim)
	eng.Interval = cfg.Sim.TickInterval
	eng.Speed = cfg.Sim.Speed
	eng.ScenarioTimeout = cfg.Sim.ScenarioTimeout
	eng.AutosaveEvery = cfg.Storage.Autosave
	eng.Source = scenarioSource(cfg, rnd)
	eng.OnChange = hub.Snapshot

	store := &store{db: db, slot: cfg.Storage.Slot}
	eng.OnSave = store.save
	eng.OnEnd = store.finish
	eng.OnReset = store.reset

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Keys.Admin == "" {
		slog.Warn("FROSTHAVEN_ADMIN_KEY not set, new-game endpoint disabled")
	}
	srv := &api.Server{
		Eng:      eng,
		DB:       db,
		Hub:      hub,
		Limiter:  api.NewRateLimiter(cfg.API.RateLimit, cfg.API.Burst),
		Slot:     cfg.Storage.Slot,
		Port:     cfg.API.Port,
		AdminKey: cfg.Keys.Admin,
	}

	// ── Start ─────────────────────────────────────────────────────────
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		feed.Run(ctx, cfg.Weather.Refresh)
	}()
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(ctx); err != nil {
			slog.Error("HTTP API stopped", "error", err)
			stop()
		}
	}()

	fmt.Printf("\nFrost Haven is alive: %d survivors on day %d.\n", state.Survivors, state.Day)
	fmt.Printf("API: http://localhost:%d/api/v1/state\n", cfg.API.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	runErr := eng.Run(ctx)
	wg.Wait()
	fmt.Println("Simulation stopped. Colony saved.")
	return runErr
}

// loadColony restores the slot or starts a fresh colony. resumed reports
// whether a save was found.
func loadColony(ctx context.Context, db *persistence.DB, slot string) (st *colony.State, resumed bool) {
	st, err := db.LoadSnapshot(ctx, slot)
	switch {
	case err == nil:
		slog.Info("resuming saved colony", "day", st.Day, "survivors", st.Survivors)
		return st, true
	case errors.Is(err, persistence.ErrNoSnapshot):
		slog.Info("no saved colony, starting fresh")
	default:
		slog.Warn("saved colony unreadable, starting fresh", "error", err)
	}
	return colony.NewState(), false
}

// randomSource prefers random.org, then the configured seed, then the OS.
// Meta keys for loop progress that the snapshot does not carry.
func tickKey(slot string) string     { return slot + ":tick" }
func eventDayKey(slot string) string { return slot + ":last_event_day" }

// restoreProgress puts back the tick counter and the last event day of a
// resumed colony, so a reload does not replay the day's event.
func restoreProgress(ctx context.Context, db *persistence.DB, slot string, sim *engine.Simulation) {
	if v, err := db.GetMeta(ctx, tickKey(slot)); err == nil {
		if tick, err := strconv.ParseUint(v, 10, 64); err == nil {
			sim.Tick = tick
		}
	}
	if v, err := db.GetMeta(ctx, eventDayKey(slot)); err == nil {
		if day, err := strconv.Atoi(v); err == nil && day <= sim.State.Day {
			sim.Injector.LastDay = day
		}
	}
}

func randomSource(cfg *config.Config) entropy.Source {
	if cfg.Keys.RandomOrg != "" || cfg.Sim.Seed != 0 {
		return entropy.Default(cfg.Keys.RandomOrg, cfg.Sim.Seed)
	}
	return entropy.Crypto{}
}

func frontSeed(cfg *config.Config) int64 {
	if cfg.Sim.Seed != 0 {
		return int64(cfg.Sim.Seed)
	}
	return time.Now().UnixNano()
}

func scenarioSource(cfg *config.Config, rnd entropy.Source) engine.ScenarioSource {
	if w := llm.NewScenarioWriter(llm.NewClient(cfg.Keys.Anthropic)); w != nil {
		slog.Info("LLM scenarios enabled")
		return w
	}
	slog.Warn("ANTHROPIC_API_KEY not set, using built-in scenarios")
	return llm.Fallback{Rand: rnd}
}

// store writes the save slot. The engine calls it from a single writer
// goroutine in the order the colony changed.
type store struct {
	db   *persistence.DB
	slot string
}

func (s *store) save(cp engine.Checkpoint) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.db.SaveSnapshot(ctx, s.slot, cp.State); err != nil {
		slog.Error("autosave failed", "error", err)
		return
	}
	if err := s.db.AppendLog(ctx, s.slot, cp.Log); err != nil {
		slog.Error("log archive failed", "error", err)
	}
	if err := s.db.SaveMeta(ctx, tickKey(s.slot), strconv.FormatUint(cp.Tick, 10)); err != nil {
		slog.Warn("save tick failed", "error", err)
	}
	if err := s.db.SaveMeta(ctx, eventDayKey(s.slot), strconv.Itoa(cp.LastEventDay)); err != nil {
		slog.Warn("save event day failed", "error", err)
	}
}

// reset clears the slot for a new colony.
func (s *store) reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.db.DeleteSnapshot(ctx, s.slot); err != nil {
		slog.Error("purge save failed", "error", err)
	}
}

// finish records the run and clears the slot, archived log included.
func (s *store) finish(p engine.Phase, st *colony.State, _ []engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	run := persistence.Run{
		Slot:         s.slot,
		Outcome:      string(p),
		Days:         st.Stats.DaysSurvived,
		Survivors:    st.Survivors,
		MaxSurvivors: st.Stats.MaxSurvivors,
		Score:        st.Score,
	}
	if err := s.db.RecordRun(ctx, run); err != nil {
		slog.Error("record run failed", "error", err)
	}
	if err := s.db.DeleteSnapshot(ctx, s.slot); err != nil {
		slog.Error("purge save failed", "error", err)
	}
}
