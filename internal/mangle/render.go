package mangle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"

	"pddlsim/internal/grounding"
	"pddlsim/internal/intern"
)

// unitName pads nullary relations: Mangle atoms carry at least one argument.
const unitName = "/unit"

var namePrefix = map[intern.Kind]string{
	intern.Object:    "/o",
	intern.Type:      "/t",
	intern.Predicate: "/p",
}

// arity is the Mangle arity of p.
func arity(p grounding.Pred) int {
	if p.Arity == 0 {
		return 1
	}
	return p.Arity
}

func predicateSym(p grounding.Pred) ast.PredicateSym {
	return ast.PredicateSym{Symbol: p.Name, Arity: arity(p)}
}

// renderFragments writes the static fragments as one Mangle source unit.
func renderFragments(frags []*grounding.Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		fmt.Fprintf(&b, "# %s\n", f.Name)
		for _, d := range f.Decls {
			b.WriteString("Decl ")
			b.WriteString(d.Name)
			b.WriteString("(")
			for i := 0; i < arity(d); i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "X%d", i)
			}
			b.WriteString(").\n")
		}
		for _, fact := range f.Facts {
			writeAtom(&b, fact)
			b.WriteString(".\n")
		}
		for _, r := range f.Rules {
			writeRule(&b, r)
		}
	}
	return b.String()
}

func writeRule(b *strings.Builder, r grounding.Rule) {
	writeAtom(b, r.Head)
	for i, l := range r.Body {
		if i == 0 {
			b.WriteString(" :- ")
		} else {
			b.WriteString(", ")
		}
		switch l.Kind {
		case grounding.Positive:
			writeAtom(b, l.Atom)
		case grounding.Negative:
			b.WriteString("!")
			writeAtom(b, l.Atom)
		case grounding.Equal:
			b.WriteString(term(l.Left) + " = " + term(l.Right))
		case grounding.NotEqual:
			b.WriteString(term(l.Left) + " != " + term(l.Right))
		default:
			panic(fmt.Sprintf("mangle: unknown literal kind %d", l.Kind))
		}
	}
	// A name constant swallows an adjacent period, so comparison filters
	// ending the body need the terminator set apart.
	b.WriteString(" .\n")
}

func writeAtom(b *strings.Builder, a grounding.Atom) {
	b.WriteString(a.Pred.Name)
	b.WriteString("(")
	if len(a.Args) == 0 {
		b.WriteString(unitName)
	}
	for i, t := range a.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(term(t))
	}
	b.WriteString(")")
}

// term renders variables as V<n> and constants as kind-prefixed names.
func term(id intern.ID) string {
	if grounding.IsVar(id) {
		return "V" + strconv.FormatUint(uint64(id.Index), 10)
	}
	return constantName(id)
}

func constantName(id intern.ID) string {
	prefix, ok := namePrefix[id.Kind]
	if !ok {
		panic(fmt.Sprintf("mangle: %s cannot be a constant", id))
	}
	return prefix + strconv.FormatUint(uint64(id.Index), 10)
}

// toAtom converts a ground atom for direct insertion into a fact store.
func toAtom(a grounding.Atom) (ast.Atom, error) {
	args := make([]ast.BaseTerm, 0, arity(a.Pred))
	if len(a.Args) == 0 {
		c, err := ast.Name(unitName)
		if err != nil {
			return ast.Atom{}, err
		}
		args = append(args, c)
	}
	for _, id := range a.Args {
		if grounding.IsVar(id) {
			return ast.Atom{}, fmt.Errorf("fact %s is not ground", a)
		}
		c, err := ast.Name(constantName(id))
		if err != nil {
			return ast.Atom{}, err
		}
		args = append(args, c)
	}
	return ast.Atom{Predicate: predicateSym(a.Pred), Args: args}, nil
}

// fromAtom decodes a derived atom of p back into interned ids.
func fromAtom(p grounding.Pred, a ast.Atom) (grounding.Atom, error) {
	out := grounding.Atom{Pred: p, Args: make([]intern.ID, 0, p.Arity)}
	if p.Arity == 0 {
		return out, nil
	}
	for i, arg := range a.Args {
		c, ok := arg.(ast.Constant)
		if !ok || c.Type != ast.NameType {
			return grounding.Atom{}, fmt.Errorf("%s argument %d: not a name constant: %v", p, i, arg)
		}
		id, err := parseName(c.Symbol)
		if err != nil {
			return grounding.Atom{}, fmt.Errorf("%s argument %d: %w", p, i, err)
		}
		out.Args = append(out.Args, id)
	}
	return out, nil
}

func parseName(sym string) (intern.ID, error) {
	for kind, prefix := range namePrefix {
		rest, ok := strings.CutPrefix(sym, prefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			continue
		}
		return intern.ID{Kind: kind, Index: uint32(n)}, nil
	}
	return intern.ID{}, fmt.Errorf("unknown name %q", sym)
}
