package pddl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeHierarchyCompatibility(t *testing.T) {
	h, err := NewTypeHierarchy([]TypeDecl{
		{Name: "vehicle"},
		{Name: "car", Supertype: CustomType("vehicle")},
		{Name: "sedan", Supertype: CustomType("car")},
		{Name: "place"},
	})
	require.NoError(t, err)

	tests := []struct {
		declared, required Type
		want               bool
	}{
		{CustomType("sedan"), CustomType("sedan"), true},
		{CustomType("sedan"), CustomType("car"), true},
		{CustomType("sedan"), CustomType("vehicle"), true},
		{CustomType("sedan"), ObjectType{}, true},
		{CustomType("car"), CustomType("sedan"), false},
		{CustomType("place"), CustomType("vehicle"), false},
		{ObjectType{}, ObjectType{}, true},
		{ObjectType{}, CustomType("vehicle"), false},
		{CustomType("unknown"), ObjectType{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.declared.String()+"->"+tt.required.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, h.IsCompatible(tt.declared, tt.required))
		})
	}
}

func TestTypeHierarchyTransitivity(t *testing.T) {
	decls := []TypeDecl{{Name: "t0"}}
	for i := 1; i < 8; i++ {
		decls = append(decls, TypeDecl{
			Name:      CustomType("t" + string(rune('0'+i))),
			Supertype: CustomType("t" + string(rune('0'+i-1))),
		})
	}
	h, err := NewTypeHierarchy(decls)
	require.NoError(t, err)

	all := append([]Type{ObjectType{}}, typesOf(h.Types())...)
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				if h.IsCompatible(a, b) && h.IsCompatible(b, c) {
					assert.Truef(t, h.IsCompatible(a, c), "%s <: %s <: %s but not %s <: %s", a, b, c, a, c)
				}
			}
		}
	}
}

func typesOf(cs []CustomType) []Type {
	out := make([]Type, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func TestTypeHierarchyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		decls []TypeDecl
		kind  error
	}{
		{
			name:  "self cycle",
			decls: []TypeDecl{{Name: "a", Supertype: CustomType("a")}},
			kind:  ErrCyclicHierarchy,
		},
		{
			name: "three cycle",
			decls: []TypeDecl{
				{Name: "a", Supertype: CustomType("b")},
				{Name: "b", Supertype: CustomType("c")},
				{Name: "c", Supertype: CustomType("a")},
			},
			kind: ErrCyclicHierarchy,
		},
		{
			name:  "undefined supertype",
			decls: []TypeDecl{{Name: "a", Supertype: CustomType("ghost")}},
			kind:  ErrUndefinedType,
		},
		{
			name:  "duplicate",
			decls: []TypeDecl{{Name: "a"}, {Name: "a"}},
			kind:  ErrDuplicateName,
		},
		{
			name:  "root redeclared",
			decls: []TypeDecl{{Name: "object"}},
			kind:  ErrDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTypeHierarchy(tt.decls)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestNilHierarchy(t *testing.T) {
	var h *TypeHierarchy
	assert.True(t, h.IsCompatible(ObjectType{}, ObjectType{}))
	assert.False(t, h.IsCompatible(CustomType("x"), ObjectType{}))
	assert.True(t, h.Has(ObjectType{}))
	assert.Empty(t, h.Types())
}

func TestAncestors(t *testing.T) {
	h, err := NewTypeHierarchy([]TypeDecl{
		{Name: "animal"},
		{Name: "dog", Supertype: CustomType("animal")},
	})
	require.NoError(t, err)
	assert.Equal(t, []Type{CustomType("dog"), CustomType("animal"), ObjectType{}}, h.Ancestors(CustomType("dog")))
	assert.Equal(t, []Type{ObjectType{}}, h.Ancestors(ObjectType{}))
}
