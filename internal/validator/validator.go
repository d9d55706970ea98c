// Package validator lints compiled units for problems the compiler accepts
// but that usually mean a fiber will never run or never finish.
package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/strand/pkg/ports"
	"github.com/aretw0/strand/pkg/program"
)

// Issue is one finding in a unit.
type Issue struct {
	Unit    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Unit, i.Message)
}

// Result collects the findings for a set of units.
type Result struct {
	Units    int
	Errors   []Issue // the unit does not compile
	Warnings []Issue
}

// Err summarises Errors as a single error, or nil.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	lines := make([]string, len(r.Errors))
	for i, is := range r.Errors {
		lines[i] = is.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(lines, "\n- "))
}

// ValidateSource compiles and lints every unit of src.
func ValidateSource(ctx context.Context, src ports.UnitSource) (Result, error) {
	var res Result
	names, err := src.List(ctx)
	if err != nil {
		return res, err
	}
	for _, name := range names {
		res.Units++
		raw, err := src.Fetch(ctx, name)
		if err != nil {
			res.Errors = append(res.Errors, Issue{Unit: name, Message: err.Error()})
			continue
		}
		spec, err := program.Parse(raw)
		if err != nil {
			res.Errors = append(res.Errors, Issue{Unit: name, Message: err.Error()})
			continue
		}
		if spec.Name == "" {
			spec.Name = name
		}
		prog, err := program.Compile(spec)
		if err != nil {
			for _, e := range splitJoined(err) {
				res.Errors = append(res.Errors, Issue{Unit: name, Message: e.Error()})
			}
			continue
		}
		for _, msg := range ValidateProgram(prog) {
			res.Warnings = append(res.Warnings, Issue{Unit: name, Message: msg})
		}
	}
	return res, nil
}

// ValidateProgram reports fibers that are never spawned, kills of unknown
// aliases and channels that are only ever read or only ever written.
func ValidateProgram(prog *program.Program) []string {
	spawns := make(map[string][]string)
	aliases := make(map[string]bool)
	var kills []string
	readers := make(map[string]bool)
	writers := make(map[string]bool)
	prog.Walk(func(fiber string, ins *program.Instr) {
		switch ins.Op {
		case program.OpSpawn:
			spawns[fiber] = append(spawns[fiber], ins.Fiber)
			if ins.As != "" {
				aliases[ins.As] = true
			}
		case program.OpKill:
			if ins.Fiber != program.Self {
				kills = append(kills, ins.Fiber)
			}
		case program.OpRead:
			readers[ins.Chan] = true
		case program.OpWrite:
			writers[ins.Chan] = true
		}
	})

	// Crawl from the entry points.
	visited := map[string]bool{}
	queue := []string{"start", program.MainFiber}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		queue = append(queue, spawns[current]...)
	}

	var issues []string
	for _, name := range prog.FiberNames() {
		if !visited[name] {
			issues = append(issues, fmt.Sprintf("fiber %q is never spawned", name))
		}
	}
	reported := map[string]bool{}
	for _, target := range kills {
		if !aliases[target] && !reported[target] {
			reported[target] = true
			issues = append(issues, fmt.Sprintf("kill target %q is never spawned under that alias", target))
		}
	}
	channels := append([]string(nil), prog.Channels...)
	sort.Strings(channels)
	for _, ch := range channels {
		switch {
		case !readers[ch] && !writers[ch]:
			issues = append(issues, fmt.Sprintf("channel %q is never used", ch))
		case !writers[ch]:
			issues = append(issues, fmt.Sprintf("channel %q is read but never written: readers block forever", ch))
		case !readers[ch]:
			issues = append(issues, fmt.Sprintf("channel %q is written but never read: writers block forever", ch))
		}
	}
	return issues
}

// splitJoined unpacks the errors.Join list Compile wraps, so each problem is
// reported on its own.
func splitJoined(err error) []error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			return joined.Unwrap()
		}
	}
	return []error{err}
}
