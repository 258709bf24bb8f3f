package pddl

import (
	"fmt"
	"strings"
)

// Requirements is a set of capability flags gating language constructs.
type Requirements uint16

const (
	RequireStrips Requirements = 1 << iota
	RequireTyping
	RequireNegativePreconditions
	RequireDisjunctivePreconditions
	RequireEquality
	RequireProbabilisticEffects
)

var requirementNames = []struct {
	flag Requirements
	name string
}{
	{RequireStrips, ":strips"},
	{RequireTyping, ":typing"},
	{RequireNegativePreconditions, ":negative-preconditions"},
	{RequireDisjunctivePreconditions, ":disjunctive-preconditions"},
	{RequireEquality, ":equality"},
	{RequireProbabilisticEffects, ":probabilistic-effects"},
}

// ParseRequirement maps a PDDL requirement keyword to its flags. ":adl"
// expands to the flags it implies.
func ParseRequirement(keyword string) (Requirements, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if !strings.HasPrefix(keyword, ":") {
		keyword = ":" + keyword
	}
	if keyword == ":adl" {
		return RequireStrips | RequireTyping | RequireNegativePreconditions |
			RequireDisjunctivePreconditions | RequireEquality, nil
	}
	for _, r := range requirementNames {
		if r.name == keyword {
			return r.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown requirement %q", keyword)
}

// Has reports whether every flag in r is set.
func (rs Requirements) Has(r Requirements) bool {
	return rs&r == r
}

func (rs Requirements) String() string {
	var names []string
	for _, r := range requirementNames {
		if rs.Has(r.flag) {
			names = append(names, r.name)
		}
	}
	return strings.Join(names, " ")
}
