package loader

import (
	"context"

	"github.com/aretw0/strand/pkg/domain"
)

// Entry point symbol names every unit must export.
const (
	SymCreateFrame = "create_frame"
	SymStart       = "start"
	SymMain        = "main"
)

// CreateFrameFunc allocates the thread frame shared by a unit's fibers.
type CreateFrameFunc func(ctx context.Context) (any, error)

// EntryFunc builds the fiber for an entry point over a frame.
// It may return nil when the unit has nothing to run there.
type EntryFunc func(frame any) *domain.Fiber

// Image is the symbol table of a unit. Entry points are stored as
// CreateFrameFunc and EntryFunc values. It is produced by a compiler or by Go
// code registering a unit directly.
type Image struct {
	Filename string
	Symbols  map[string]any

	// Static images were bound at build time: their symbols can only be
	// reached through the fixed entry points, never looked up by name.
	Static bool
}

// Static builds a statically linked image from Go functions.
// A nil start or main is allowed and simply produces no fiber.
func Static(filename string, create CreateFrameFunc, start, main EntryFunc) *Image {
	if start == nil {
		start = noEntry
	}
	if main == nil {
		main = noEntry
	}
	syms := map[string]any{
		SymStart: start,
		SymMain:  main,
	}
	if create != nil {
		syms[SymCreateFrame] = create
	}
	return &Image{Filename: filename, Static: true, Symbols: syms}
}

func noEntry(any) *domain.Fiber { return nil }

func (img *Image) lookup(name string) (any, error) {
	sym, ok := img.Symbols[name]
	if !ok || sym == nil {
		return nil, &domain.LinkFailure{Filename: img.Filename, Operation: "dlsym", What: name}
	}
	return sym, nil
}
