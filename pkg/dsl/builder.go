package dsl

import (
	"fmt"
	"sort"

	"github.com/aretw0/strand/pkg/loader"
	"github.com/aretw0/strand/pkg/program"
)

// Builder manages the unit construction.
type Builder struct {
	name        string
	description string
	channels    []string
	vars        map[string]any
	start       *Steps
	fibers      map[string]*Steps
}

// New creates a new unit builder.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		vars:   make(map[string]any),
		fibers: make(map[string]*Steps),
	}
}

// Describe sets the unit description.
func (b *Builder) Describe(text string) *Builder {
	b.description = text
	return b
}

// Channel declares channels.
func (b *Builder) Channel(names ...string) *Builder {
	b.channels = append(b.channels, names...)
	return b
}

// Var sets an initial frame variable.
func (b *Builder) Var(name string, value any) *Builder {
	b.vars[name] = value
	return b
}

// Start returns the steps run by the start entry point.
func (b *Builder) Start() *Steps {
	if b.start == nil {
		b.start = &Steps{}
	}
	return b.start
}

// Fiber returns the steps of the named fiber.
// If the fiber already exists, it returns the existing steps.
func (b *Builder) Fiber(name string) *Steps {
	if s, ok := b.fibers[name]; ok {
		return s
	}
	s := &Steps{}
	b.fibers[name] = s
	return s
}

// Spec returns the unit in its uncompiled form.
func (b *Builder) Spec() *program.UnitSpec {
	spec := &program.UnitSpec{
		Name:        b.name,
		Description: b.description,
		Channels:    append([]string(nil), b.channels...),
		Fibers:      make(map[string][]any, len(b.fibers)),
	}
	if len(b.vars) > 0 {
		spec.Vars = make(map[string]any, len(b.vars))
		for k, v := range b.vars {
			spec.Vars[k] = v
		}
	}
	if b.start != nil {
		spec.Start = b.start.list()
	}
	for name, s := range b.fibers {
		spec.Fibers[name] = s.list()
	}
	return spec
}

// Build compiles the unit.
func (b *Builder) Build() (*program.Program, error) {
	prog, err := program.Compile(b.Spec())
	if err != nil {
		return nil, fmt.Errorf("failed to build unit: %w", err)
	}
	return prog, nil
}

// Image compiles the unit into a linkable image named after it.
func (b *Builder) Image(opts ...program.FrameOption) (*loader.Image, error) {
	prog, err := b.Build()
	if err != nil {
		return nil, err
	}
	return loader.ProgramImage(b.name, prog, opts...), nil
}

// YAML renders the unit as a document the directory loaders accept.
func (b *Builder) YAML() ([]byte, error) {
	return program.Marshal(b.Spec())
}

// Fibers lists the declared fiber names in order.
func (b *Builder) Fibers() []string {
	names := make([]string, 0, len(b.fibers))
	for name := range b.fibers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
