package pddlsim_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pddlsim/pkg/pddlsim"
)

func TestEpisodeThroughPublicAPI(t *testing.T) {
	ctx := context.Background()
	d, p, err := pddlsim.LoadFixture(filepath.Join("..", "..", "internal", "fixture", "testdata", "rooms.yaml"))
	require.NoError(t, err)

	for name, solver := range map[string]pddlsim.Solver{
		"mangle":  pddlsim.NewMangleSolver(),
		"datalog": pddlsim.NewDatalogSolver(),
	} {
		t.Run(name, func(t *testing.T) {
			sim, err := pddlsim.New(ctx, d, p, 3, pddlsim.WithSolver(solver))
			require.NoError(t, err)

			err = sim.ApplyGroundedAction(ctx, pddlsim.GroundedAction{Name: "drop", Grounding: []pddlsim.Object{"ball", "A"}})
			var perr *pddlsim.PreconditionError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, pddlsim.ActionName("drop"), perr.Action.Name)
			assert.ErrorIs(t, err, pddlsim.ErrPreconditionViolation)

			for _, a := range []pddlsim.GroundedAction{
				{Name: "pick-up", Grounding: []pddlsim.Object{"ball", "A"}},
				{Name: "move", Grounding: []pddlsim.Object{"A", "B"}},
				{Name: "drop", Grounding: []pddlsim.Object{"ball", "B"}},
			} {
				require.NoError(t, sim.ApplyGroundedAction(ctx, a))
			}
			assert.True(t, sim.IsSolved())
			assert.Contains(t, sim.TruePredicates(), pddlsim.Fact{Name: "at", Args: []pddlsim.Object{"ball", "B"}})
		})
	}
}
