package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"pddlsim/internal/pddl"
)

// readPlan loads a plan file. See parsePlan for the format.
func readPlan(path string) ([]pddl.GroundedAction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer f.Close()
	plan, err := parsePlan(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// parsePlan reads one action per line, either as "(move A B)" or "move A B".
// Text after ";" or "#" is a comment and blank lines are skipped.
func parsePlan(r io.Reader) ([]pddl.GroundedAction, error) {
	var plan []pddl.GroundedAction
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "(") != strings.HasSuffix(line, ")") {
			return nil, fmt.Errorf("line %d: unbalanced parentheses in %q", lineNo, line)
		}
		line = strings.TrimSuffix(strings.TrimPrefix(line, "("), ")")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, fmt.Errorf("line %d: missing action name", lineNo)
		}

		action := pddl.GroundedAction{
			Name:      pddl.ActionName(fields[0]),
			Grounding: make([]pddl.Object, 0, len(fields)-1),
		}
		for _, f := range fields[1:] {
			action.Grounding = append(action.Grounding, pddl.Object(f))
		}
		plan = append(plan, action)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return plan, nil
}
