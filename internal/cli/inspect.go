package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/strand/internal/presentation/graph"
	"github.com/aretw0/strand/internal/validator"
	loamadapter "github.com/aretw0/strand/pkg/adapters/loam"
	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/program"
)

// Validate compiles and lints every unit in opts.Dir.
// Warnings are printed; compile errors fail the command.
func Validate(ctx context.Context, opts RunOptions, stdout io.Writer) error {
	src, err := loamadapter.Open(opts.Dir)
	if err != nil {
		return err
	}
	res, err := validator.ValidateSource(ctx, src)
	if err != nil {
		return err
	}
	if opts.JSON {
		if err := json.NewEncoder(stdout).Encode(res); err != nil {
			return err
		}
		return res.Err()
	}
	for _, w := range res.Warnings {
		printSystemMessage(stdout, "warning: %s", w)
	}
	if err := res.Err(); err != nil {
		return err
	}
	printSystemMessage(stdout, "%d units OK.", res.Units)
	return nil
}

// Graph prints a Mermaid flowchart of one unit.
func Graph(ctx context.Context, opts RunOptions, unit string, stdout io.Writer) error {
	src, err := loamadapter.Open(opts.Dir)
	if err != nil {
		return err
	}
	raw, err := src.Fetch(ctx, unit)
	if err != nil {
		return err
	}
	spec, err := program.Parse(raw)
	if err != nil {
		return &domain.LinkFailure{Filename: unit, Operation: "parse", What: err.Error()}
	}
	prog, err := program.Compile(spec)
	if err != nil {
		return &domain.LinkFailure{Filename: unit, Operation: "compile", What: err.Error()}
	}
	_, err = fmt.Fprint(stdout, graph.GenerateMermaid(prog, nil))
	return err
}
