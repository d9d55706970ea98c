/*
Package domain contains the core entities of the strand scheduler.

It defines fibers, rendezvous channels, the service requests a fiber hands
back to the scheduler and the status vocabulary the driver reports to its
host. The package is kept free of I/O and persistence concerns.

# Key Entities

  - Fiber: a resumable unit of execution backed by a Continuation.
  - Channel: an unbuffered rendezvous point with reader and writer wait queues.
  - Request: the tagged value a fiber returns when it needs the scheduler.
  - Slot: a holder for exactly one value moved between fibers.
  - Report: the summary of one program run, as persisted by report stores.
*/
package domain
