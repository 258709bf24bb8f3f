package grounding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pddlsim/internal/intern"
	"pddlsim/internal/pddl"
	"pddlsim/internal/pddl/pddltest"
	"pddlsim/internal/world"
)

func compileBlocks(t *testing.T) (*Compiler, *pddl.Domain, *intern.Interner) {
	t.Helper()
	d, p := pddltest.Blocks(t)
	in := intern.New()
	return NewCompiler(d, p, in), d, in
}

func schemaOf(t *testing.T, c *Compiler, d *pddl.Domain, name pddl.ActionName) (*Fragment, Pred) {
	t.Helper()
	for i, a := range d.Actions() {
		if a.Name == name {
			return c.CompileSchema(i, a)
		}
	}
	t.Fatalf("no action %s", name)
	return nil, Pred{}
}

func ruleStrings(f *Fragment) []string {
	out := make([]string, len(f.Rules))
	for i, r := range f.Rules {
		out[i] = r.String()
	}
	return out
}

func TestNewCompilerInternsUniverseInOrder(t *testing.T) {
	_, _, in := compileBlocks(t)
	for i, name := range []string{"floor", "a", "b", "c"} {
		id, ok := in.Lookup(intern.Object, name)
		require.True(t, ok, name)
		assert.Equal(t, uint32(i), id.Index, name)
	}
	assert.Equal(t, 4, in.Len(intern.Type), "object plus three custom types")
	assert.Equal(t, 4, in.Len(intern.Predicate))
}

func TestCompileTypes(t *testing.T) {
	c, _, _ := compileBlocks(t)
	f := c.CompileTypes()

	assert.Equal(t, "types", f.Name)
	assert.Contains(t, f.Decls, IsAPred)
	assert.Contains(t, f.Decls, Pred{Name: "p0", Arity: 2}, "on/2")
	assert.Len(t, f.Facts, 4+3, "one object_type per object, one subtype per custom type")
	assert.Len(t, f.Rules, 2)
	for _, r := range f.Rules {
		assert.Equal(t, IsAPred, r.Head.Pred)
	}
}

func TestCompileState(t *testing.T) {
	c, _, _ := compileBlocks(t)
	_, p := pddltest.Blocks(t)
	facts := c.CompileState(world.New(p.Init()))
	require.Len(t, facts, len(p.Init()))
	for _, f := range facts {
		assert.True(t, strings.HasPrefix(f.Pred.Name, "p"))
		for _, arg := range f.Args {
			assert.Equal(t, intern.Object, arg.Kind)
		}
	}
}

func TestCompileSchemaGuardsEveryParameter(t *testing.T) {
	c, d, _ := compileBlocks(t)
	f, show := schemaOf(t, c, d, "touch")
	assert.Equal(t, Pred{Name: "act_3", Arity: 2}, show)
	require.Len(t, f.Rules, 1)
	body := f.Rules[0].Body
	require.Len(t, body, 2)
	for _, l := range body {
		assert.Equal(t, IsAPred, l.Atom.Pred)
	}
}

func TestCompileSchemaDisjunctionUsesAuxiliaryRelation(t *testing.T) {
	c, d, _ := compileBlocks(t)
	f, show := schemaOf(t, c, d, "paint")

	var aux []Pred
	for _, p := range f.Decls {
		if strings.HasPrefix(p.Name, "aux_") {
			aux = append(aux, p)
		}
	}
	require.Len(t, aux, 1)
	assert.Equal(t, 1, aux[0].Arity)

	var auxRules, actRules int
	for _, r := range f.Rules {
		switch r.Head.Pred {
		case aux[0]:
			auxRules++
		case show:
			actRules++
			assert.Equal(t, Positive, r.Body[0].Kind)
			assert.Equal(t, aux[0], r.Body[0].Atom.Pred)
		}
	}
	assert.Equal(t, 2, auxRules, "one clause per disjunct")
	assert.Equal(t, 1, actRules)
}

func TestCompileSchemaFolding(t *testing.T) {
	c, d, _ := compileBlocks(t)

	// (or (= ?x ?x) ...) always holds, leaving only the type guard.
	f, _ := schemaOf(t, c, d, "flip")
	require.Len(t, f.Rules, 1)
	assert.Len(t, f.Rules[0].Body, 1)
	assert.Len(t, f.Decls, 1)

	// Constant-only preconditions compile to a rule with a ground body.
	f, show := schemaOf(t, c, d, "rest")
	assert.Equal(t, 0, show.Arity)
	require.Len(t, f.Rules, 1)
	assert.Empty(t, f.Rules[0].Head.Args)
	require.Len(t, f.Rules[0].Body, 1)
	assert.Empty(t, f.Rules[0].Body[0].Vars())
}

func TestCompileSchemaNegationForms(t *testing.T) {
	c, d, _ := compileBlocks(t)
	f, _ := schemaOf(t, c, d, "stack")
	rules := strings.Join(ruleStrings(f), "\n")
	assert.Contains(t, rules, " != ", "negated equality becomes an inequality")

	f, show := schemaOf(t, c, d, "wipe")
	var act Rule
	for _, r := range f.Rules {
		if r.Head.Pred == show {
			act = r
		}
	}
	require.NotEmpty(t, act.Body)
	last := act.Body[len(act.Body)-1]
	assert.Equal(t, Negative, last.Kind, "negated disjunction is a negated auxiliary literal")
	assert.True(t, strings.HasPrefix(last.Atom.Pred.Name, "aux_"))
}

func TestCompileSchemaUnsatisfiable(t *testing.T) {
	raw := pddltest.BlocksDomain()
	raw.Actions[1].Precondition = pddl.Or[pddl.Term]{}
	rp := pddltest.BlocksProblem()
	d, p := pddltest.Build(t, raw, rp)

	c := NewCompiler(d, p, intern.New())
	f, show := c.CompileSchema(1, d.Actions()[1])
	assert.Empty(t, f.Rules)
	assert.Equal(t, []Pred{show}, f.Decls, "the head is declared even with no rules")
}

func TestRuleOrdersPositivesGuardsFilters(t *testing.T) {
	c, d, _ := compileBlocks(t)
	f, show := schemaOf(t, c, d, "stack")
	for _, r := range f.Rules {
		if r.Head.Pred != show {
			continue
		}
		phase := 0
		for _, l := range r.Body {
			var p int
			switch {
			case l.Kind == Positive && l.Atom.Pred == IsAPred:
				p = 1
			case l.Kind == Positive:
				p = 0
			default:
				p = 2
			}
			assert.GreaterOrEqual(t, p, phase, "literal %s out of order in %s", l, r)
			phase = p
		}
	}
}

func TestCompileSchemaComparesWithConstants(t *testing.T) {
	c, d, in := compileBlocks(t)
	floor, ok := in.Lookup(intern.Object, "floor")
	require.True(t, ok)

	for name, kind := range map[pddl.ActionName]LiteralKind{"sweep": NotEqual, "anchor": Equal} {
		f, show := schemaOf(t, c, d, name)
		var act []Rule
		for _, r := range f.Rules {
			if r.Head.Pred == show {
				act = append(act, r)
			}
		}
		require.Len(t, act, 1, name)
		body := act[0].Body
		require.NotEmpty(t, body, name)
		last := body[len(body)-1]
		assert.Equal(t, kind, last.Kind, "%s ends with the comparison filter", name)
		assert.Equal(t, floor, last.Right, name)
	}
}
