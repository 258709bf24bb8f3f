package mangle

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"pddlsim/internal/grounding"
	"pddlsim/internal/intern"
)

func obj(i uint32) intern.ID { return intern.ID{Kind: intern.Object, Index: i} }
func vr(i uint32) intern.ID  { return intern.ID{Kind: intern.Variable, Index: i} }

var (
	edge  = grounding.Pred{Name: "edge", Arity: 2}
	path  = grounding.Pred{Name: "path", Arity: 2}
	node  = grounding.Pred{Name: "node", Arity: 1}
	lit   = grounding.Pred{Name: "lit", Arity: 0}
	dark  = grounding.Pred{Name: "dark", Arity: 1}
	quiet = grounding.Pred{Name: "quiet", Arity: 0}
)

func pos(p grounding.Pred, args ...intern.ID) grounding.Literal {
	return grounding.Literal{Kind: grounding.Positive, Atom: grounding.Atom{Pred: p, Args: args}}
}

func neg(p grounding.Pred, args ...intern.ID) grounding.Literal {
	return grounding.Literal{Kind: grounding.Negative, Atom: grounding.Atom{Pred: p, Args: args}}
}

func graphFragment() *grounding.Fragment {
	x, y, z := vr(0), vr(1), vr(2)
	return &grounding.Fragment{
		Name:  "graph",
		Decls: []grounding.Pred{edge, path, node, lit, dark, quiet},
		Facts: []grounding.Atom{
			{Pred: node, Args: []intern.ID{obj(0)}},
			{Pred: node, Args: []intern.ID{obj(1)}},
			{Pred: node, Args: []intern.ID{obj(2)}},
		},
		Rules: []grounding.Rule{
			{Head: grounding.Atom{Pred: path, Args: []intern.ID{x, y}}, Body: []grounding.Literal{pos(edge, x, y)}},
			{Head: grounding.Atom{Pred: path, Args: []intern.ID{x, z}}, Body: []grounding.Literal{pos(path, x, y), pos(edge, y, z)}},
			{Head: grounding.Atom{Pred: dark, Args: []intern.ID{x}}, Body: []grounding.Literal{pos(node, x), neg(lit)}},
			{Head: grounding.Atom{Pred: quiet}, Body: []grounding.Literal{
				pos(node, x), pos(node, y),
				{Kind: grounding.NotEqual, Left: x, Right: y},
				{Kind: grounding.Equal, Left: x, Right: obj(0)},
			}},
		},
	}
}

func solveAll(t *testing.T, e *Engine, prog grounding.Program) []string {
	t.Helper()
	var got []string
	err := e.Solve(context.Background(), prog, func(a grounding.Atom) error {
		got = append(got, a.String())
		return nil
	})
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	slices.Sort(got)
	return got
}

func TestRenderFragments(t *testing.T) {
	src := renderFragments([]*grounding.Fragment{graphFragment()})
	for _, want := range []string{
		"Decl edge(X0, X1).",
		"Decl lit(X0).",
		"node(/o0).",
		"path(V0, V2) :- path(V0, V1), edge(V1, V2) .",
		"dark(V0) :- node(V0), !lit(/unit) .",
		"quiet(/unit) :- node(V0), node(V1), V0 != V1, V0 = /o0 .",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("rendered source missing %q:\n%s", want, src)
		}
	}
}

func TestSolveTransitiveClosure(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	prog := grounding.Program{
		Static: []*grounding.Fragment{graphFragment()},
		Facts: []grounding.Atom{
			{Pred: edge, Args: []intern.ID{obj(0), obj(1)}},
			{Pred: edge, Args: []intern.ID{obj(1), obj(2)}},
		},
		Show: path,
	}
	got := solveAll(t, e, prog)
	want := []string{
		"path(object#0, object#1)",
		"path(object#0, object#2)",
		"path(object#1, object#2)",
	}
	if !slices.Equal(got, want) {
		t.Errorf("path = %v, want %v", got, want)
	}
}

func TestSolveNegationAndNullary(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	frag := graphFragment()

	unlit := solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{frag}, Show: dark})
	if len(unlit) != 3 {
		t.Errorf("dark without lit = %v, want all three nodes", unlit)
	}

	lights := []grounding.Atom{{Pred: lit}}
	if got := solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{frag}, Facts: lights, Show: dark}); len(got) != 0 {
		t.Errorf("dark with lit = %v, want none", got)
	}

	quietGot := solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{frag}, Show: quiet})
	if !slices.Equal(quietGot, []string{"quiet()"}) {
		t.Errorf("quiet = %v, want the nullary atom once", quietGot)
	}
}

func TestSolveComparisonWithConstantEndingBody(t *testing.T) {
	far := grounding.Pred{Name: "far", Arity: 1}
	home := grounding.Pred{Name: "home", Arity: 1}
	x := vr(0)
	frag := &grounding.Fragment{
		Name:  "filters",
		Decls: []grounding.Pred{node, far, home},
		Facts: []grounding.Atom{
			{Pred: node, Args: []intern.ID{obj(0)}},
			{Pred: node, Args: []intern.ID{obj(1)}},
			{Pred: node, Args: []intern.ID{obj(2)}},
		},
		Rules: []grounding.Rule{
			{Head: grounding.Atom{Pred: far, Args: []intern.ID{x}}, Body: []grounding.Literal{
				pos(node, x), {Kind: grounding.NotEqual, Left: x, Right: obj(0)},
			}},
			{Head: grounding.Atom{Pred: home, Args: []intern.ID{x}}, Body: []grounding.Literal{
				pos(node, x), {Kind: grounding.Equal, Left: x, Right: obj(2)},
			}},
		},
	}
	e := NewEngine(DefaultConfig(), nil)

	got := solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{frag}, Show: far})
	if want := []string{"far(object#1)", "far(object#2)"}; !slices.Equal(got, want) {
		t.Errorf("far = %v, want %v", got, want)
	}
	got = solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{frag}, Show: home})
	if want := []string{"home(object#2)"}; !slices.Equal(got, want) {
		t.Errorf("home = %v, want %v", got, want)
	}
}

func TestSolveCachesAnalysis(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	frag := graphFragment()
	prog := grounding.Program{Static: []*grounding.Fragment{frag}, Show: path}
	solveAll(t, e, prog)
	solveAll(t, e, prog)

	stats := e.Stats()
	if stats.Programs != 1 || stats.CacheHits != 1 || stats.Evaluations != 2 {
		t.Errorf("Stats() = %+v, want one program, one hit, two evaluations", stats)
	}

	// A different fragment with the same name is a different program.
	solveAll(t, e, grounding.Program{Static: []*grounding.Fragment{graphFragment()}, Show: path})
	if got := e.Stats().Programs; got != 2 {
		t.Errorf("Programs = %d, want 2", got)
	}
}

func TestSolveCanceledContext(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Solve(ctx, grounding.Program{Static: []*grounding.Fragment{graphFragment()}, Show: path}, func(grounding.Atom) error {
		t.Fatal("emit called on a canceled solve")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Solve() error = %v, want context.Canceled", err)
	}
}

func TestSolveTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueryTimeout = time.Nanosecond
	e := NewEngine(cfg, nil)
	err := e.Solve(context.Background(), grounding.Program{Static: []*grounding.Fragment{graphFragment()}, Show: path}, func(grounding.Atom) error {
		return nil
	})
	if !errors.Is(err, grounding.ErrSolverTimeout) {
		t.Fatalf("Solve() error = %v, want ErrSolverTimeout", err)
	}
}

func TestDeadlineStoreStopsLookups(t *testing.T) {
	store := factstore.NewSimpleInMemoryStore()
	fact, err := toAtom(grounding.Atom{Pred: edge, Args: []intern.ID{obj(0), obj(1)}})
	if err != nil {
		t.Fatal(err)
	}
	store.Add(fact)
	query := ast.NewQuery(predicateSym(edge))

	ctx, cancel := context.WithCancel(context.Background())
	ds := deadlineStore{FactStore: store, ctx: ctx}
	count := func() (int, error) {
		n := 0
		err := ds.GetFacts(query, func(ast.Atom) error { n++; return nil })
		return n, err
	}

	if n, err := count(); err != nil || n != 1 {
		t.Fatalf("GetFacts() before deadline = %d, %v; want 1, nil", n, err)
	}
	cancel()
	if n, err := count(); !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("GetFacts() after deadline = %d, %v; want 0, context.Canceled", n, err)
	}
	if !ds.Contains(fact) {
		t.Error("Contains() must keep answering after the deadline")
	}
}

func TestSolveRejectsNonGroundFacts(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	prog := grounding.Program{
		Static: []*grounding.Fragment{graphFragment()},
		Facts:  []grounding.Atom{{Pred: edge, Args: []intern.ID{vr(0), obj(1)}}},
		Show:   path,
	}
	if err := e.Solve(context.Background(), prog, func(grounding.Atom) error { return nil }); err == nil {
		t.Fatal("Solve() with a variable in a fact succeeded")
	}
}

func TestParseName(t *testing.T) {
	for _, id := range []intern.ID{obj(0), obj(17), {Kind: intern.Type, Index: 3}} {
		got, err := parseName(constantName(id))
		if err != nil {
			t.Fatalf("parseName(%q) error = %v", constantName(id), err)
		}
		if got != id {
			t.Errorf("parseName(constantName(%v)) = %v", id, got)
		}
	}
	if _, err := parseName("/unit"); err == nil {
		t.Error("parseName(/unit) succeeded")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FactLimit <= 0 {
		t.Errorf("FactLimit = %d, want positive", cfg.FactLimit)
	}
	if cfg.QueryTimeout <= 0 {
		t.Errorf("QueryTimeout = %v, want positive", cfg.QueryTimeout)
	}
}
