// Package intern allocates dense, kind-tagged integer ids for the names that
// cross into a solver backend. One Interner serves one episode.
package intern

import (
	"fmt"
	"sync"
)

// Kind separates the id spaces. Ids of different kinds never collide in
// meaning even when their indices are equal.
type Kind uint8

const (
	Object Kind = iota
	Predicate
	Type
	Variable
	numKinds
)

var kindNames = [numKinds]string{"object", "predicate", "type", "variable"}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ID is a kind-tagged dense index.
type ID struct {
	Kind  Kind
	Index uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Index)
}

// Interner maps names to ids and back. Lookups may run concurrently with each
// other; IDOrInsert takes the write lock.
type Interner struct {
	mu     sync.RWMutex
	ids    [numKinds]map[string]uint32
	values [numKinds][]string
}

// New returns an empty interner.
func New() *Interner {
	in := &Interner{}
	for k := range in.ids {
		in.ids[k] = make(map[string]uint32)
	}
	return in
}

// IDOrInsert returns the id of value under kind, allocating the next index on
// first sight.
func (in *Interner) IDOrInsert(kind Kind, value string) ID {
	in.mu.RLock()
	idx, ok := in.ids[kind][value]
	in.mu.RUnlock()
	if ok {
		return ID{Kind: kind, Index: idx}
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if idx, ok := in.ids[kind][value]; ok {
		return ID{Kind: kind, Index: idx}
	}
	idx = uint32(len(in.values[kind]))
	in.ids[kind][value] = idx
	in.values[kind] = append(in.values[kind], value)
	return ID{Kind: kind, Index: idx}
}

// Lookup returns the id of value without allocating.
func (in *Interner) Lookup(kind Kind, value string) (ID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	idx, ok := in.ids[kind][value]
	return ID{Kind: kind, Index: idx}, ok
}

// Value is the inverse of IDOrInsert.
func (in *Interner) Value(id ID) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id.Kind >= numKinds || int(id.Index) >= len(in.values[id.Kind]) {
		return "", false
	}
	return in.values[id.Kind][id.Index], true
}

// Len returns how many values of kind have been interned.
func (in *Interner) Len(kind Kind) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.values[kind])
}
