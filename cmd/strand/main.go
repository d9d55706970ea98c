package main

import (
	"os"

	"github.com/aretw0/strand/internal/cli"
)

func main() {
	defer func() {
		if rec := recover(); rec != nil {
			os.Stderr.WriteString("strand: unexpected panic\n")
			os.Exit(cli.PanicExitCode(rec))
		}
	}()
	os.Exit(Execute())
}
