package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/frost-haven/internal/colony"
	"github.com/talgya/frost-haven/internal/engine"
	"github.com/talgya/frost-haven/internal/entropy"
	"github.com/talgya/frost-haven/internal/llm"
	"github.com/talgya/frost-haven/internal/persistence"
)

func newSimulateCmd() *cobra.Command {
	var (
		ticks   int
		seed    uint64
		dayLen  int
		cadence int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a colony headless with no player input",
		Long: `Runs a fresh colony as fast as possible with default workers and
built-in scenarios, choosing event options at random. Useful for
checking balance changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			rnd := entropy.NewSeeded(seed)
			sim := engine.NewSimulation(colony.NewState(), rnd)
			sim.DayLength = dayLen
			sim.Injector.Cadence = cadence
			sim.NewID = sequentialIDs()

			// Put everyone to work before the clock starts.
			for _, role := range []colony.Role{colony.RoleWood, colony.RoleFood, colony.RoleFire} {
				_ = sim.AssignWorker(role, 1)
			}

			choose := func(sc *colony.Scenario) int {
				return int(rnd.Float64() * float64(len(sc.Options)))
			}
			out := engine.Advance(cmd.Context(), sim, llm.Fallback{Rand: rnd}, ticks, choose)
			printSummary(sim, out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "t", 10*engine.DayLengthTicks, "maximum ticks to run")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 42, "random seed")
	cmd.Flags().IntVar(&dayLen, "day-length", engine.DayLengthTicks, "ticks per day")
	cmd.Flags().IntVar(&cadence, "cadence", engine.DefaultEventCadence, "days between events")
	return cmd
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "sim-" + strconv.Itoa(n)
	}
}

func printSummary(sim *engine.Simulation, out engine.Outcome) {
	titleColor := color.New(color.FgCyan, color.Bold)
	st := sim.State

	titleColor.Println("\n╭──────────────────────────╮")
	titleColor.Println("│  Frost Haven: simulation │")
	titleColor.Println("╰──────────────────────────╯")

	switch sim.Phase {
	case engine.PhaseDefeat:
		color.Red("The colony fell on day %d after %s ticks.", st.Day, humanize.Comma(int64(sim.Tick)))
	case engine.PhaseVictory:
		color.Green("Evacuated %d survivors on day %d.", st.Survivors, st.Day)
	default:
		color.Yellow("Still standing on day %d after %s ticks (%s).", st.Day, humanize.Comma(int64(sim.Tick)), out)
	}
	fmt.Println()

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Stat", "Value"}),
	)
	rows := [][]string{
		{"Survivors", fmt.Sprintf("%d / %d", st.Survivors, st.Capacity())},
		{"Peak survivors", strconv.Itoa(st.Stats.MaxSurvivors)},
		{"Days survived", strconv.Itoa(st.Stats.DaysSurvived)},
		{"Wood", fmt.Sprintf("%.0f", st.Wood)},
		{"Food", fmt.Sprintf("%.0f", st.Food)},
		{"Temperature", fmt.Sprintf("%.1f", st.Temperature)},
		{"Fire", fmt.Sprintf("%.0f", st.FireLevel)},
		{"Wood gathered", humanize.Comma(int64(st.Stats.TotalWoodGathered))},
		{"Food gathered", humanize.Comma(int64(st.Stats.TotalFoodGathered))},
		{"Achievements", strconv.Itoa(len(st.Achievements))},
		{"Artifacts", artifactNames(st.Artifacts)},
		{"Score", humanize.Comma(int64(st.Score))},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	fmt.Println("\nLast entries:")
	for _, e := range sim.RecentLog(10) {
		fmt.Printf("   [day %d] %s\n", e.Day, e.Description)
	}
}

// artifactNames lists artifacts by display name. Unknown ids from older
// saves are shown as stored.
func artifactNames(ids []colony.ArtifactID) string {
	if len(ids) == 0 {
		return "none"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if a, ok := colony.LookupArtifact(id); ok {
			names = append(names, a.Name)
		} else {
			names = append(names, string(id))
		}
	}
	return strings.Join(names, ", ")
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved colony and the best finished runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := persistence.Open(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			return printStatus(cmd.Context(), db, cfg.Storage.Slot)
		},
	}
}

func printStatus(ctx context.Context, db *persistence.DB, slot string) error {
	infoColor := color.New(color.FgCyan)

	snap, err := db.SnapshotInfo(ctx, slot)
	switch {
	case errors.Is(err, persistence.ErrNoSnapshot):
		color.Yellow("No saved colony in slot %q.", slot)
	case err != nil:
		return err
	default:
		infoColor.Printf("Slot %q: day %d, %d survivors, saved %s\n",
			slot, snap.Day, snap.Survivors, humanize.Time(snap.SavedAt))
	}

	runs, err := db.BestRuns(ctx, 10)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("\nNo finished runs yet.")
		return nil
	}

	fmt.Println("\nBest runs:")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Outcome", "Days", "Survivors", "Peak", "Score", "Ended"}),
	)
	for i, r := range runs {
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.Outcome,
			strconv.Itoa(r.Days),
			strconv.Itoa(r.Survivors),
			strconv.Itoa(r.MaxSurvivors),
			humanize.Comma(int64(r.Score)),
			humanize.Time(r.EndedAt),
		})
	}
	table.Render()
	return nil
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved colony so the next serve starts fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := persistence.Open(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.DeleteSnapshot(cmd.Context(), cfg.Storage.Slot); err != nil {
				return err
			}
			color.Green("Cleared slot %q.", cfg.Storage.Slot)
			return nil
		},
	}
}
