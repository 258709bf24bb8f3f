package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pddlsim/internal/datalog"
	"pddlsim/internal/pddl"
	"pddlsim/internal/pddl/pddltest"
	"pddlsim/internal/simulation"
)

var _ simulation.Recorder = (*EpisodeStore)(nil)

func openTemp(t *testing.T) *EpisodeStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "episodes.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEpisodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	ep := simulation.EpisodeInfo{ID: "ep-1", Domain: "rooms", Problem: "move-ball", Seed: 1<<63 + 5}
	require.NoError(t, s.StartEpisode(ctx, ep))

	got, err := s.Episode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, ep, got.EpisodeInfo, "seeds above MaxInt64 survive")
	assert.False(t, got.Solved)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, s.MarkSolved(ctx, "ep-1"))
	got, err = s.Episode(ctx, "ep-1")
	require.NoError(t, err)
	assert.True(t, got.Solved)
}

func TestUnknownEpisode(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Episode(ctx, "nope")
	assert.ErrorIs(t, err, ErrEpisodeNotFound)
	assert.ErrorIs(t, s.MarkSolved(ctx, "nope"), ErrEpisodeNotFound)

	steps, err := s.Steps(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestDuplicateEpisodeFails(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	ep := simulation.EpisodeInfo{ID: "dup", Domain: "d", Problem: "p"}
	require.NoError(t, s.StartEpisode(ctx, ep))
	assert.Error(t, s.StartEpisode(ctx, ep))
}

func TestStepsKeepOrderAndOutcome(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.StartEpisode(ctx, simulation.EpisodeInfo{ID: "e", Domain: "rooms", Problem: "move-ball"}))

	records := []simulation.StepRecord{
		{EpisodeID: "e", Step: 0, Action: pddl.GroundedAction{Name: "drop", Grounding: []pddl.Object{"ball", "A"}}, Outcome: simulation.OutcomeViolation},
		{EpisodeID: "e", Step: 1, Action: pddl.GroundedAction{Name: "pick-up", Grounding: []pddl.Object{"ball", "A"}}, Outcome: simulation.OutcomeApplied},
		{EpisodeID: "e", Step: 2, Action: pddl.GroundedAction{Name: "rest", Grounding: []pddl.Object{}}, Outcome: simulation.OutcomeApplied},
	}
	for _, r := range records {
		require.NoError(t, s.RecordStep(ctx, r))
	}

	got, err := s.Steps(ctx, "e")
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("Steps() mismatch (-want +got):\n%s", diff)
	}

	applied, err := s.AppliedActions(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, []pddl.GroundedAction{records[1].Action, records[2].Action}, applied)
}

func TestEpisodesListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.StartEpisode(ctx, simulation.EpisodeInfo{ID: id, Domain: "d", Problem: "p"}))
	}
	eps, err := s.Episodes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "third", eps[0].ID)
	assert.Equal(t, "second", eps[1].ID)
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.StartEpisode(context.Background(), simulation.EpisodeInfo{ID: "m", Domain: "d", Problem: "p"}))
	_, err = s.Episode(context.Background(), "m")
	assert.NoError(t, err)
}

func TestRecordedEpisodeReplays(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	d, p := pddltest.Rooms(t)

	sim, err := simulation.New(ctx, d, p, 9,
		simulation.WithSolver(datalog.NewEngine(datalog.Config{}, nil)),
		simulation.WithRecorder(s))
	require.NoError(t, err)
	plan := []pddl.GroundedAction{
		{Name: "pick-up", Grounding: []pddl.Object{"ball", "A"}},
		{Name: "pick-up", Grounding: []pddl.Object{"ball", "A"}},
		{Name: "move", Grounding: []pddl.Object{"A", "B"}},
		{Name: "drop", Grounding: []pddl.Object{"ball", "B"}},
	}
	for _, a := range plan {
		_ = sim.ApplyGroundedAction(ctx, a)
	}
	require.True(t, sim.IsSolved())

	ep, err := s.Episode(ctx, sim.ID())
	require.NoError(t, err)
	assert.True(t, ep.Solved)
	assert.Equal(t, uint64(9), ep.Seed)

	applied, err := s.AppliedActions(ctx, sim.ID())
	require.NoError(t, err)
	require.Len(t, applied, 3)

	replayed, err := simulation.Replay(ctx, d, p, ep.Seed, applied,
		simulation.WithSolver(datalog.NewEngine(datalog.Config{}, nil)))
	require.NoError(t, err)
	assert.True(t, replayed.IsSolved())
	assert.Equal(t, sim.TruePredicates(), replayed.TruePredicates())
}
