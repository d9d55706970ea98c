/*
Package strand runs cooperative fibers on a single thread.

Fibers are resumable computations that suspend by issuing requests: yield,
spawn, rendezvous reads and writes on unbuffered channels, and kill. The
scheduler services those requests itself; everything else (printing,
sleeping, halting, user defined calls) is delegated to the host, which
answers and drives the scheduler again.

The scheduler keeps the garbage collector informed: a fiber is rooted while
it is scheduled or parked on a channel and unrooted once it finishes or is
killed. Run reports record the root traffic so imbalances are visible.

# Concept

A unit is a library with three entry points: create_frame builds the shared
thread frame, start and main return the initial fibers. Units are either
YAML programs, read from a Loam repository or any ports.UnitSource, or Go
code registered with loader.Static.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/strand"
	)

	func main() {
		// Reads units from ./units (pingpong.yaml, ...)
		eng, err := strand.New("./units")
		if err != nil {
			log.Fatal(err)
		}

		report, err := eng.RunUnit(context.Background(), "pingpong")
		if err != nil {
			log.Fatal(err)
		}
		for _, line := range report.Output {
			fmt.Println(line)
		}
	}

Go units use package coro, where a fiber is an ordinary function:

	ball := domain.NewChannel("ball")
	main := coro.New("main", func(c *coro.Context) {
		c.Spawn("pong", func(c *coro.Context) {
			fmt.Println(c.Read(ball))
		})
		c.Write(ball, "ping")
	})

# Architecture

  - internal/runtime: the resumable driver. Single threaded, never blocks.
  - pkg/domain: fibers, channels, requests, reports and the error taxonomy.
  - pkg/ports: collector, report store and unit source interfaces.
  - pkg/runner: the host loop that services delegated requests.
  - pkg/loader, pkg/program: linking and the YAML program interpreter.
  - pkg/adapters: memory, file, redis, loam, HTTP and MCP adapters.
*/
package strand
