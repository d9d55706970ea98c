package loader

import (
	"context"
	"fmt"

	"github.com/aretw0/strand/pkg/domain"
)

// Library is a linked unit.
type Library struct {
	Filename string

	image       *Image
	createFrame CreateFrameFunc
	start       EntryFunc
	main        EntryFunc
	extensions  []Extension
}

// Static reports whether the library was linked at build time.
func (l *Library) Static() bool { return l.image.Static }

// Resolve looks up an extra entry point by name.
// Statically linked libraries cannot be searched by name.
func (l *Library) Resolve(name string) (EntryFunc, error) {
	if l.image.Static {
		return nil, &domain.LinkFailure{
			Filename:  "<static link>",
			Operation: name,
			What:      "dlsym with static link requires name not string",
		}
	}
	sym, err := l.image.lookup(name)
	if err != nil {
		return nil, err
	}
	entry, ok := sym.(EntryFunc)
	if !ok {
		return nil, &domain.LinkFailure{Filename: l.Filename, Operation: "dlsym", What: name + ": not an entry point"}
	}
	return entry, nil
}

// Init creates a thread frame and the start and main fibers over it.
func (l *Library) Init(ctx context.Context) (*Instance, error) {
	frame, err := l.createFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: create frame: %w", l.Filename, err)
	}
	inst := &Instance{
		Library: l,
		Frame:   frame,
		Start:   l.start(frame),
		Main:    l.main(frame),
	}
	for _, ext := range l.extensions {
		if err := ext.Initialized(ctx, inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Instance is an initialised library: a frame plus its entry fibers.
// Either fiber may be nil.
type Instance struct {
	Library *Library
	Frame   any
	Start   *domain.Fiber
	Main    *domain.Fiber
}

// Fibers returns the non-nil entry fibers, start first.
func (i *Instance) Fibers() []*domain.Fiber {
	var out []*domain.Fiber
	if i.Start != nil {
		out = append(out, i.Start)
	}
	if i.Main != nil {
		out = append(out, i.Main)
	}
	return out
}

// Spawn builds a fiber for a named entry point over this instance's frame.
func (i *Instance) Spawn(name string) (*domain.Fiber, error) {
	entry, err := i.Library.Resolve(name)
	if err != nil {
		return nil, err
	}
	f := entry(i.Frame)
	if f == nil {
		return nil, &domain.LinkFailure{Filename: i.Library.Filename, Operation: name, What: "entry point produced no fiber"}
	}
	return f, nil
}
