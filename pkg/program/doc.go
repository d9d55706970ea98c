// Package program compiles declarative YAML units into fibers.
//
// A unit declares channels, shared variables and named fibers. Each fiber is
// a list of steps:
//
//	name: pingpong
//	channels: [ping, pong]
//	fibers:
//	  main:
//	    - spawn: {fiber: ponger, as: p}
//	    - repeat:
//	        times: 3
//	        steps:
//	          - write: {chan: ping, value: hello}
//	          - read: {chan: pong, into: reply}
//	          - print: "got ${reply}"
//	    - kill: p
//	  ponger:
//	    - loop:
//	        - read: {chan: ping, into: msg}
//	        - write: {chan: pong, value: $msg}
//
// Every spawn instantiates a fresh interpreter over the unit's shared Frame.
package program
