package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pddlsim/internal/pddl"
	"pddlsim/internal/pddl/pddltest"
)

func decode(t *testing.T, path string) Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc
}

func TestFixturesMatchHandBuiltParts(t *testing.T) {
	tests := []struct {
		file    string
		domain  pddl.RawDomain
		problem pddl.RawProblem
	}{
		{"rooms.yaml", pddltest.RoomsDomain(), pddltest.RoomsProblem()},
		{"blocks.yaml", pddltest.BlocksDomain(), pddltest.BlocksProblem()},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			doc := decode(t, filepath.Join("testdata", tt.file))

			rd, err := doc.Domain.Raw()
			require.NoError(t, err)
			if diff := cmp.Diff(tt.domain, rd, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("domain mismatch (-want +got):\n%s", diff)
			}

			require.NotNil(t, doc.Problem)
			rp, err := doc.Problem.Raw()
			require.NoError(t, err)
			if diff := cmp.Diff(tt.problem, rp, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("problem mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadValidates(t *testing.T) {
	d, p, err := Load(filepath.Join("testdata", "rooms.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "rooms", d.Name())
	assert.Len(t, d.Actions(), 3)
	require.NotNil(t, p)
	assert.Equal(t, "move-ball", p.Name())
	assert.Len(t, p.Init(), 3)
}

func TestParseDomainOnly(t *testing.T) {
	d, p, err := Parse([]byte(`
domain:
  name: tiny
  requirements: [strips]
  predicates: [lit]
  actions:
    - name: switch
      effect: {add: [lit]}
`))
	require.NoError(t, err)
	assert.Nil(t, p)
	a, ok := d.Action("switch")
	require.True(t, ok)
	assert.Empty(t, a.Params)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind error
	}{
		{"unknown construct", `
domain:
  name: x
  actions:
    - name: a
      precondition: {xor: []}
`, nil},
		{"two keys in one node", `
domain:
  name: x
  actions:
    - name: a
      precondition: {pred: [p], not: {pred: [p]}}
`, nil},
		{"eq arity", `
domain:
  name: x
  requirements: [equality]
  actions:
    - name: a
      precondition: {eq: [a]}
`, nil},
		{"effect in a condition", `
domain:
  name: x
  actions:
    - name: a
      precondition: {add: [p]}
`, nil},
		{"unknown field", `
domain:
  name: x
  colour: blue
`, nil},
		{"unknown requirement", `
domain:
  name: x
  requirements: [fluents]
`, nil},
		{"parameter without ?", `
domain:
  name: x
  actions:
    - name: a
      parameters: [x - object]
`, nil},
		{"dangling type marker", `
domain:
  name: x
  types: [a -]
`, nil},
		{"undefined predicate", `
domain:
  name: x
  actions:
    - name: a
      precondition: {pred: [ghost]}
`, pddl.ErrUndefinedPredicate},
		{"probability above one", `
domain:
  name: x
  requirements: [probabilistic-effects]
  predicates: [p]
  actions:
    - name: a
      effect: {prob: [{p: 0.7, effect: {add: [p]}}, {p: 0.6, effect: {del: [p]}}]}
`, pddl.ErrInvalidProbability},
		{"problem for another domain", `
domain:
  name: x
problem:
  name: y
  domain: z
`, pddl.ErrDomainMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
		})
	}
}

func TestTypedList(t *testing.T) {
	got, err := typedList([]string{"a b - block", "floor", "c - object"})
	require.NoError(t, err)
	want := []typedName{
		{name: "a", typ: pddl.CustomType("block")},
		{name: "b", typ: pddl.CustomType("block")},
		{name: "floor"},
		{name: "c", typ: pddl.ObjectType{}},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(typedName{})); diff != "" {
		t.Errorf("typedList() mismatch (-want +got):\n%s", diff)
	}
}
