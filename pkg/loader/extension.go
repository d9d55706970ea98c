package loader

import "context"

// Extension hooks into the link and initialisation lifecycle of a library.
// Returning an error aborts the operation; the error is propagated as is.
type Extension interface {
	// Linked runs after the mandatory symbols were resolved.
	Linked(ctx context.Context, lib *Library) error

	// Initialized runs after the frame was created and the entry fibers built.
	Initialized(ctx context.Context, inst *Instance) error
}

// ExtensionFuncs adapts plain functions to Extension. Nil fields are skipped.
type ExtensionFuncs struct {
	OnLinked      func(ctx context.Context, lib *Library) error
	OnInitialized func(ctx context.Context, inst *Instance) error
}

func (e ExtensionFuncs) Linked(ctx context.Context, lib *Library) error {
	if e.OnLinked == nil {
		return nil
	}
	return e.OnLinked(ctx, lib)
}

func (e ExtensionFuncs) Initialized(ctx context.Context, inst *Instance) error {
	if e.OnInitialized == nil {
		return nil
	}
	return e.OnInitialized(ctx, inst)
}
