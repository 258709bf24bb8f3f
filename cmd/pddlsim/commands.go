package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pddlsim/internal/logging"
	"pddlsim/internal/simulation"
	"pddlsim/internal/store"
)

// walkStream separates the walker's choices from the episode's own random
// source, which drives probabilistic effects.
const walkStream = 0x5851f42d4c957f2d

var errGoalNotReached = errors.New("goal not reached")

var (
	seedFlag     uint64
	maxStepsFlag int
	metricsFlag  bool
	limitFlag    int
)

var actionsCmd = &cobra.Command{
	Use:   "actions <fixture>",
	Short: "List the legal actions in the initial state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sim, err := startEpisode(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		actions, err := sim.GroundedActions(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s / %s: %d legal actions",
			sim.Domain().Name(), sim.Problem().Name(), len(actions))))
		for _, a := range actions {
			fmt.Fprintln(out, "  "+actionStyle.Render(a.String()))
		}
		if sim.IsSolved() {
			fmt.Fprintln(out, mutedStyle.Render("goal already holds in the initial state"))
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <fixture> <plan>",
	Short: "Apply a plan and report whether it reaches the goal",
	Long: `Apply a plan file to the problem's initial state, one action per line,
written as "(move A B)" or "move A B". Stops at the first action whose
precondition does not hold.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		plan, err := readPlan(args[1])
		if err != nil {
			return err
		}
		sim, err := startEpisode(ctx, cmd, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, a := range plan {
			if sim.IsSolved() {
				fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("goal reached after %d steps, ignoring the remaining %d", i, len(plan)-i)))
				break
			}
			if err := sim.ApplyGroundedAction(ctx, a); err != nil {
				fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("%3d. %s", i+1, a)))
				return fmt.Errorf("plan failed at step %d: %w", i+1, err)
			}
			fmt.Fprintln(out, fmt.Sprintf("%3d. ", i+1)+actionStyle.Render(a.String()))
		}

		if !sim.IsSolved() {
			fmt.Fprintln(out, warningStyle.Render("plan ended before the goal was reached"))
			return errGoalNotReached
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("goal reached in %d steps", sim.Steps())))
		return nil
	},
}

var walkCmd = &cobra.Command{
	Use:   "walk <fixture>",
	Short: "Take random legal actions until the goal holds or the budget runs out",
	Long: `Start a recorded episode and repeatedly apply a uniformly chosen legal
action. The walk is determined by the seed, so replay reproduces it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, p, err := loadProblem(args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		extra := []simulation.Option{simulation.WithRecorder(st)}
		var reg *prometheus.Registry
		if metricsFlag || cfg.Metrics.Enabled {
			r, m, err := newMetrics()
			if err != nil {
				return err
			}
			extra = append(extra, simulation.WithMetrics(m))
			reg = r
		}
		opts, err := simulationOptions(extra...)
		if err != nil {
			return err
		}

		seed := episodeSeed(cmd)
		sim, err := simulation.New(ctx, d, p, seed, opts...)
		if err != nil {
			return err
		}

		budget := cfg.Simulation.MaxSteps
		if maxStepsFlag > 0 {
			budget = maxStepsFlag
		}
		rng := rand.New(rand.NewPCG(seed, walkStream))
		out := cmd.OutOrStdout()
		start := time.Now()

		for !sim.IsSolved() && sim.Steps() < budget {
			actions, err := sim.GroundedActions(ctx)
			if err != nil {
				return err
			}
			if len(actions) == 0 {
				fmt.Fprintln(out, warningStyle.Render("dead end: no legal actions"))
				break
			}
			a := actions[rng.IntN(len(actions))]
			if err := sim.ApplyGroundedAction(ctx, a); err != nil {
				return fmt.Errorf("step %d: %w", sim.Steps()+1, err)
			}
			if verbose {
				fmt.Fprintln(out, fmt.Sprintf("%4d. ", sim.Steps())+actionStyle.Render(a.String()))
			}
		}

		logging.For(logger, logging.CategorySimulation).Info("walk finished",
			zap.String("episode", sim.ID()),
			zap.Int("steps", sim.Steps()),
			zap.Bool("solved", sim.IsSolved()),
			zap.Duration("elapsed", time.Since(start)))

		fmt.Fprintln(out, summary(
			"episode", sim.ID(),
			"seed", fmt.Sprint(seed),
			"steps", fmt.Sprint(sim.Steps()),
			"solved", solvedLabel(sim.IsSolved()),
		))
		if reg != nil {
			return writeMetrics(out, reg)
		}
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <fixture> <episode-id>",
	Short: "Replay a recorded episode and check it ends where it did",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, p, err := loadProblem(args[0])
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		ep, err := st.Episode(ctx, args[1])
		if err != nil {
			return err
		}
		if ep.Domain != d.Name() || ep.Problem != p.Name() {
			return fmt.Errorf("episode %s ran %s/%s, fixture holds %s/%s",
				ep.ID, ep.Domain, ep.Problem, d.Name(), p.Name())
		}
		actions, err := st.AppliedActions(ctx, ep.ID)
		if err != nil {
			return err
		}

		opts, err := simulationOptions()
		if err != nil {
			return err
		}
		sim, err := simulation.Replay(ctx, d, p, ep.Seed, actions, opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, summary(
			"episode", ep.ID,
			"seed", fmt.Sprint(ep.Seed),
			"steps", fmt.Sprint(sim.Steps()),
			"solved", solvedLabel(sim.IsSolved()),
		))
		if sim.IsSolved() != ep.Solved {
			return fmt.Errorf("replay of %s diverged: recorded solved=%t, replayed solved=%t",
				ep.ID, ep.Solved, sim.IsSolved())
		}
		fmt.Fprintln(out, titleStyle.Render("final state"))
		for _, fact := range sim.TruePredicates() {
			fmt.Fprintln(out, "  "+fact.String())
		}
		fmt.Fprintln(out, successStyle.Render("replay matches the recorded episode"))
		return nil
	},
}

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "List recorded episodes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		eps, err := st.Episodes(cmd.Context(), limitFlag)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(eps) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("no episodes recorded"))
			return nil
		}
		for _, ep := range eps {
			fmt.Fprintf(out, "%s  %s/%s  seed=%d  %s  %s\n",
				ep.ID, ep.Domain, ep.Problem, ep.Seed,
				solvedLabel(ep.Solved),
				mutedStyle.Render(ep.CreatedAt.Format(time.RFC3339)))
		}
		return nil
	},
}

func solvedLabel(solved bool) string {
	if solved {
		return successStyle.Render("solved")
	}
	return warningStyle.Render("unsolved")
}

// summary renders key/value pairs in a bordered box.
func summary(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%-8s", pairs[i])))
		b.WriteString(pairs[i+1])
	}
	return summaryStyle.Render(b.String())
}
