package program

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/aretw0/strand/pkg/domain"
)

// Interpolator renders print text against the frame variables.
type Interpolator func(text string, vars map[string]any) (string, error)

// ExpandVars replaces $name and ${name} with the value of the variable.
// Unknown variables expand to the empty string.
func ExpandVars(text string, vars map[string]any) (string, error) {
	return os.Expand(text, func(key string) string {
		v, ok := vars[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}), nil
}

// Frame is the state shared by every fiber of one program instance:
// its channels, variables and the fibers spawned under an alias.
//
// A frame is only touched from fibers of a single driver, so it needs no
// locking.
type Frame struct {
	prog        *Program
	channels    map[string]*domain.Channel
	vars        map[string]any
	aliases     map[string]*domain.Fiber
	interpolate Interpolator
}

// FrameOption configures a Frame.
type FrameOption func(*Frame)

// WithInterpolator replaces the default variable expansion of print text.
func WithInterpolator(fn Interpolator) FrameOption {
	return func(f *Frame) {
		if fn != nil {
			f.interpolate = fn
		}
	}
}

// NewFrame creates a fresh instance of prog.
func NewFrame(prog *Program, opts ...FrameOption) *Frame {
	f := &Frame{
		prog:        prog,
		channels:    make(map[string]*domain.Channel, len(prog.Channels)),
		vars:        maps.Clone(prog.Vars),
		aliases:     make(map[string]*domain.Fiber),
		interpolate: ExpandVars,
	}
	if f.vars == nil {
		f.vars = make(map[string]any)
	}
	for _, name := range prog.Channels {
		f.channels[name] = domain.NewChannel(name)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Program returns the compiled unit this frame instantiates.
func (f *Frame) Program() *Program { return f.prog }

// Channel returns a declared channel, or nil.
func (f *Frame) Channel(name string) *domain.Channel {
	return f.channels[name]
}

// Var returns the value of a variable.
func (f *Frame) Var(name string) (any, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// SetVar assigns a variable.
func (f *Frame) SetVar(name string, v any) {
	f.vars[name] = v
}

// Vars returns a snapshot of all variables.
func (f *Frame) Vars() map[string]any {
	return maps.Clone(f.vars)
}

// Fiber returns the fiber spawned under alias, or nil.
func (f *Frame) Fiber(alias string) *domain.Fiber {
	return f.aliases[alias]
}

// Spawn creates a new, not yet scheduled, fiber running the named fiber body.
func (f *Frame) Spawn(name string) (*domain.Fiber, error) {
	code, ok := f.prog.Fibers[name]
	if !ok {
		return nil, fmt.Errorf("unit %s has no fiber %q", f.prog.Name, name)
	}
	return f.newFiber(name, code), nil
}

// Start creates the fiber running the unit's start steps, or nil if there are none.
func (f *Frame) Start() *domain.Fiber {
	if len(f.prog.Start) == 0 {
		return nil
	}
	return f.newFiber("start", f.prog.Start)
}

func (f *Frame) newFiber(name string, code []Instr) *domain.Fiber {
	return domain.NewFiber(f.prog.Name+"."+name, newInterpreter(f, code))
}

// resolve turns a "$name" reference into the variable's value.
// Other values, including "$$literal" escapes, are returned as is.
func (f *Frame) resolve(v any) any {
	switch x := v.(type) {
	case string:
		if ref, ok := strings.CutPrefix(x, "$"); ok && ref != "" {
			if lit, escaped := strings.CutPrefix(ref, "$"); escaped {
				return "$" + lit
			}
			return f.vars[ref]
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = f.resolve(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = f.resolve(e)
		}
		return out
	}
	return v
}

func (f *Frame) render(text string) string {
	out, err := f.interpolate(text, f.vars)
	if err != nil {
		return text
	}
	return out
}
