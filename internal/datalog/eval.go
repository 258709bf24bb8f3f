package datalog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"pddlsim/internal/grounding"
	"pddlsim/internal/intern"
)

var errFactLimit = errors.New("derived fact limit exceeded")

// relation is a set of tuples kept in insertion order.
type relation struct {
	tuples [][]intern.ID
	seen   map[string]struct{}
}

func tupleKey(t []intern.ID) string {
	buf := make([]byte, 0, len(t)*5)
	for _, id := range t {
		buf = append(buf, byte(id.Kind))
		buf = binary.LittleEndian.AppendUint32(buf, id.Index)
	}
	return string(buf)
}

// database maps each relation to its tuples.
type database struct {
	relations map[grounding.Pred]*relation
	derived   int
	limit     int
}

func newDatabase(limit int) *database {
	return &database{relations: make(map[grounding.Pred]*relation), limit: limit}
}

func (db *database) rel(p grounding.Pred) *relation {
	r, ok := db.relations[p]
	if !ok {
		r = &relation{seen: make(map[string]struct{})}
		db.relations[p] = r
	}
	return r
}

func (db *database) size(p grounding.Pred) int {
	if r, ok := db.relations[p]; ok {
		return len(r.tuples)
	}
	return 0
}

func (db *database) contains(p grounding.Pred, t []intern.ID) bool {
	r, ok := db.relations[p]
	if !ok {
		return false
	}
	_, found := r.seen[tupleKey(t)]
	return found
}

// insert adds t to p and reports whether it was new.
func (db *database) insert(p grounding.Pred, t []intern.ID) bool {
	r := db.rel(p)
	key := tupleKey(t)
	if _, dup := r.seen[key]; dup {
		return false
	}
	r.seen[key] = struct{}{}
	r.tuples = append(r.tuples, t)
	return true
}

// binding assigns rule variables to constants.
type binding map[intern.ID]intern.ID

func (b binding) value(t intern.ID) (intern.ID, bool) {
	if !grounding.IsVar(t) {
		return t, true
	}
	v, ok := b[t]
	return v, ok
}

func (b binding) ground(a grounding.Atom) ([]intern.ID, bool) {
	out := make([]intern.ID, len(a.Args))
	for i, t := range a.Args {
		v, ok := b.value(t)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// delta restricts body literal at to the tuples [from, to) of its relation,
// the facts derived in the previous round. at < 0 means no restriction.
type delta struct {
	at       int
	from, to int
}

var full = delta{at: -1}

// fire derives every head instance of r from db and inserts them.
func (db *database) fire(r grounding.Rule, d delta) error {
	var heads [][]intern.ID
	err := db.join(r.Body, make([]bool, len(r.Body)), binding{}, d, func(b binding) error {
		h, ok := b.ground(r.Head)
		if !ok {
			return fmt.Errorf("%w: %s: head not ground", ErrUnsafeRule, r)
		}
		heads = append(heads, h)
		return nil
	})
	if err != nil {
		return err
	}

	for _, h := range heads {
		if db.insert(r.Head.Pred, h) {
			db.derived++
			if db.limit > 0 && db.derived > db.limit {
				return fmt.Errorf("%w (%d)", errFactLimit, db.limit)
			}
		}
	}
	return nil
}

// fixpoint evaluates one stratum semi-naively. The first round fires every
// rule over whole relations. Later rounds fire a rule once per body literal
// over a relation the stratum derives, restricting that literal to the tuples
// the previous round added. check runs after every round.
func (db *database) fixpoint(stratum []grounding.Rule, check func() error) (int, error) {
	heads := make(map[grounding.Pred]bool, len(stratum))
	for _, r := range stratum {
		heads[r.Head.Pred] = true
	}
	// Only relations the stratum both derives and reads need delta windows.
	marks := make(map[grounding.Pred]int)
	for _, r := range stratum {
		for _, l := range r.Body {
			if l.Kind == grounding.Positive && heads[l.Atom.Pred] {
				marks[l.Atom.Pred] = db.size(l.Atom.Pred)
			}
		}
	}

	rounds := 1
	for _, r := range stratum {
		if err := db.fire(r, full); err != nil {
			return rounds, err
		}
	}
	if err := check(); err != nil {
		return rounds, err
	}

	for {
		windows := make(map[grounding.Pred]delta)
		for p, mark := range marks {
			if n := db.size(p); n > mark {
				windows[p] = delta{from: mark, to: n}
				marks[p] = n
			}
		}
		if len(windows) == 0 {
			return rounds, nil
		}

		rounds++
		for _, r := range stratum {
			for i, l := range r.Body {
				w, ok := windows[l.Atom.Pred]
				if l.Kind != grounding.Positive || !ok {
					continue
				}
				w.at = i
				if err := db.fire(r, w); err != nil {
					return rounds, err
				}
			}
		}
		if err := check(); err != nil {
			return rounds, err
		}
	}
}

// width is the number of tuples literal i of body ranges over.
func (db *database) width(body []grounding.Literal, i int, d delta) int {
	if i == d.at {
		return d.to - d.from
	}
	return db.size(body[i].Atom.Pred)
}

// join enumerates every binding satisfying the literals not yet marked done.
// Filters run as soon as their variables are bound; otherwise the positive
// literal over the currently smallest relation is expanded next. The literal
// named by d only ranges over its delta window.
func (db *database) join(body []grounding.Literal, done []bool, b binding, d delta, yield func(binding) error) error {
	best := -1
	for i, l := range body {
		if done[i] {
			continue
		}
		switch l.Kind {
		case grounding.Positive:
			if best < 0 || db.width(body, i, d) < db.width(body, best, d) {
				best = i
			}
			continue
		case grounding.Equal:
			lv, lok := b.value(l.Left)
			rv, rok := b.value(l.Right)
			if lok != rok {
				// Assignment: bind the free side and continue.
				done[i] = true
				if lok {
					b[l.Right] = lv
				} else {
					b[l.Left] = rv
				}
				err := db.join(body, done, b, d, yield)
				if lok {
					delete(b, l.Right)
				} else {
					delete(b, l.Left)
				}
				done[i] = false
				return err
			}
			if !lok {
				continue
			}
			if lv != rv {
				return nil
			}
		case grounding.NotEqual:
			lv, lok := b.value(l.Left)
			rv, rok := b.value(l.Right)
			if !lok || !rok {
				continue
			}
			if lv == rv {
				return nil
			}
		case grounding.Negative:
			t, ok := b.ground(l.Atom)
			if !ok {
				continue
			}
			if db.contains(l.Atom.Pred, t) {
				return nil
			}
		}
		done[i] = true
		err := db.join(body, done, b, d, yield)
		done[i] = false
		return err
	}

	if best < 0 {
		for i := range body {
			if !done[i] {
				return fmt.Errorf("%w: literal %s never became ground", ErrUnsafeRule, body[i])
			}
		}
		return yield(b)
	}

	lit := body[best]
	done[best] = true
	defer func() { done[best] = false }()
	r, ok := db.relations[lit.Atom.Pred]
	if !ok {
		return nil
	}
	tuples := r.tuples
	if best == d.at {
		tuples = tuples[d.from:d.to]
	}
	for _, t := range tuples {
		var bound []intern.ID
		match := true
		for j, term := range lit.Atom.Args {
			if !grounding.IsVar(term) {
				if term != t[j] {
					match = false
					break
				}
				continue
			}
			if v, ok := b[term]; ok {
				if v != t[j] {
					match = false
					break
				}
				continue
			}
			b[term] = t[j]
			bound = append(bound, term)
		}
		if match {
			if err := db.join(body, done, b, d, yield); err != nil {
				for _, v := range bound {
					delete(b, v)
				}
				return err
			}
		}
		for _, v := range bound {
			delete(b, v)
		}
	}
	return nil
}
