/*
Package runner implements the host loop around the scheduler driver.

The driver only owns yield, spawn, channel I/O and kill. Every other request
is delegated: the runner looks up a handler for it, writes the reply into the
request slot and drives again. Sleeping fibers are detached from the driver
and woken from a timer, which makes the runner the external event loop the
driver relies on.

# Built-in requests

  - print: appends the text to the run output (and Output, if set).
  - sleep: parks the fiber for the given duration.
  - halt: stops the run with a *domain.Halt error.
  - now: replies with the current time in RFC 3339.

# Usage

	r := runner.New(
		runner.WithStore(store),
		runner.WithOutput(os.Stdout),
	)
	r.Registry.Register("fetch", fetchHandler)

	report, err := r.Run(ctx, "pingpong", collector, inst.Fibers()...)
*/
package runner
