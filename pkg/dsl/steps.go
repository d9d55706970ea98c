package dsl

import (
	"time"

	"github.com/aretw0/strand/pkg/program"
)

// Steps provides a fluent API for appending steps to a fiber body.
type Steps struct {
	steps []any
}

func (s *Steps) op(op program.Op, body any) *Steps {
	if body == nil {
		s.steps = append(s.steps, string(op))
	} else {
		s.steps = append(s.steps, map[string]any{string(op): body})
	}
	return s
}

func (s *Steps) list() []any {
	return append([]any(nil), s.steps...)
}

// Yield gives up the rest of the time slice.
func (s *Steps) Yield() *Steps { return s.op(program.OpYield, nil) }

// Spawn starts a new instance of fiber.
func (s *Steps) Spawn(fiber string) *Steps { return s.op(program.OpSpawn, fiber) }

// SpawnAs starts a new instance of fiber that Kill can later name as alias.
func (s *Steps) SpawnAs(fiber, alias string) *Steps {
	return s.op(program.OpSpawn, map[string]any{"fiber": fiber, "as": alias})
}

// Read receives from ch and discards the value.
func (s *Steps) Read(ch string) *Steps { return s.op(program.OpRead, ch) }

// ReadInto receives from ch into the frame variable into.
func (s *Steps) ReadInto(ch, into string) *Steps {
	return s.op(program.OpRead, map[string]any{"chan": ch, "into": into})
}

// Write sends value on ch. Strings starting with $ name a variable.
func (s *Steps) Write(ch string, value any) *Steps {
	return s.op(program.OpWrite, map[string]any{"chan": ch, "value": value})
}

// Kill ends the fiber spawned under alias, or the running fiber for "self".
func (s *Steps) Kill(alias string) *Steps { return s.op(program.OpKill, alias) }

// Set assigns a frame variable.
func (s *Steps) Set(name string, value any) *Steps {
	return s.op(program.OpSet, map[string]any{"var": name, "value": value})
}

// Print writes text to the run output after variable expansion.
func (s *Steps) Print(text string) *Steps { return s.op(program.OpPrint, text) }

// Sleep detaches the fiber for d.
func (s *Steps) Sleep(d time.Duration) *Steps { return s.op(program.OpSleep, d.String()) }

// Call delegates op to the host. The result lands in into when it is not empty.
func (s *Steps) Call(op string, args map[string]any, into string) *Steps {
	body := map[string]any{"op": op}
	if args != nil {
		body["args"] = args
	}
	if into != "" {
		body["into"] = into
	}
	return s.op(program.OpCall, body)
}

// Halt stops the whole run with reason.
func (s *Steps) Halt(reason string) *Steps { return s.op(program.OpHalt, reason) }

// Repeat runs the steps added by fn n times.
func (s *Steps) Repeat(n int, fn func(*Steps)) *Steps {
	body := &Steps{}
	fn(body)
	return s.op(program.OpRepeat, map[string]any{"times": n, "steps": body.list()})
}

// Loop runs the steps added by fn until the fiber is killed or parks for good.
func (s *Steps) Loop(fn func(*Steps)) *Steps {
	body := &Steps{}
	fn(body)
	return s.op(program.OpLoop, body.list())
}
