// Package loader links units into libraries and initialises them.
//
// A unit is either a YAML program fetched from a ports.UnitSource and
// compiled on demand, or a static image registered from Go. Linking resolves
// the mandatory entry points (create_frame, start, main); a missing or
// mistyped one yields a *domain.LinkFailure.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/strand/internal/logging"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/ports"
	"github.com/aretw0/strand/pkg/program"
)

// Loader links units by name.
type Loader struct {
	source     ports.UnitSource
	static     map[string]*Image
	extensions []Extension
	frameOpts  []program.FrameOption
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithSource sets where program units are read from.
func WithSource(src ports.UnitSource) Option {
	return func(l *Loader) { l.source = src }
}

// WithStatic registers statically linked images under their filename.
func WithStatic(images ...*Image) Option {
	return func(l *Loader) {
		for _, img := range images {
			l.static[img.Filename] = img
		}
	}
}

// WithExtension adds a lifecycle extension. Extensions run in registration order.
func WithExtension(ext Extension) Option {
	return func(l *Loader) { l.extensions = append(l.extensions, ext) }
}

// WithFrameOptions configures the frames of program units.
func WithFrameOptions(opts ...program.FrameOption) Option {
	return func(l *Loader) { l.frameOpts = append(l.frameOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		static: make(map[string]*Image),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Link finds the named unit and resolves its entry points.
// Static images take precedence over the source.
func (l *Loader) Link(ctx context.Context, name string) (*Library, error) {
	img, err := l.image(ctx, name)
	if err != nil {
		return nil, err
	}

	lib := &Library{Filename: img.Filename, image: img, extensions: l.extensions}
	if lib.createFrame, err = symbol[CreateFrameFunc](img, SymCreateFrame); err != nil {
		return nil, err
	}
	if lib.start, err = symbol[EntryFunc](img, SymStart); err != nil {
		return nil, err
	}
	if lib.main, err = symbol[EntryFunc](img, SymMain); err != nil {
		return nil, err
	}

	for _, ext := range l.extensions {
		if err := ext.Linked(ctx, lib); err != nil {
			return nil, err
		}
	}
	l.logger.Debug("linked unit", "unit", name, "static", img.Static)
	return lib, nil
}

// List returns every unit the loader can link.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool, len(l.static))
	for name := range l.static {
		seen[name] = true
	}
	if l.source != nil {
		names, err := l.source.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list units: %w", err)
		}
		for _, n := range names {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (l *Loader) image(ctx context.Context, name string) (*Image, error) {
	if img, ok := l.static[name]; ok {
		return img, nil
	}
	if l.source == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, name)
	}
	raw, err := l.source.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	spec, err := program.Parse(raw)
	if err != nil {
		return nil, &domain.LinkFailure{Filename: name, Operation: "parse", What: err.Error()}
	}
	if spec.Name == "" {
		spec.Name = name
	}
	prog, err := program.Compile(spec)
	if err != nil {
		return nil, &domain.LinkFailure{Filename: name, Operation: "compile", What: err.Error()}
	}
	return ProgramImage(name, prog, l.frameOpts...), nil
}

// ProgramImage exports a compiled program as a dynamically linked image.
// Every declared fiber is exported under its own name; main doubles as the
// main entry point.
func ProgramImage(filename string, prog *program.Program, opts ...program.FrameOption) *Image {
	syms := map[string]any{
		SymCreateFrame: CreateFrameFunc(func(context.Context) (any, error) {
			return program.NewFrame(prog, opts...), nil
		}),
		SymStart: EntryFunc(func(frame any) *domain.Fiber {
			return frame.(*program.Frame).Start()
		}),
	}
	for _, name := range prog.FiberNames() {
		syms[name] = EntryFunc(func(frame any) *domain.Fiber {
			f, err := frame.(*program.Frame).Spawn(name)
			if err != nil {
				return nil
			}
			return f
		})
	}
	return &Image{Filename: filename, Symbols: syms}
}

func symbol[T any](img *Image, name string) (T, error) {
	var zero T
	sym, err := img.lookup(name)
	if err != nil {
		return zero, err
	}
	v, ok := sym.(T)
	if !ok {
		return zero, &domain.LinkFailure{Filename: img.Filename, Operation: "dlsym", What: name + ": wrong symbol type"}
	}
	return v, nil
}
