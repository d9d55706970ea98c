package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/strand/pkg/program"
)

// GraphOverlay marks fibers with runtime state.
type GraphOverlay struct {
	Finished []string
	Blocked  []string
}

// GenerateMermaid draws a unit as a Mermaid flowchart:
// - Start and main: ((Circle))
// - Fiber: [Rectangle]
// - Channel: [(Database)]
// Spawns are solid arrows, writes go fiber to channel and reads channel to
// fiber, kills of an aliased fiber are dotted.
func GenerateMermaid(prog *program.Program, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	if len(prog.Start) > 0 {
		sb.WriteString("    start((\"start\"))\n")
	}
	for _, name := range prog.FiberNames() {
		opener, closer := "[", "]"
		if name == program.MainFiber {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", fiberID(name), opener, name, closer))
	}
	channels := append([]string(nil), prog.Channels...)
	sort.Strings(channels)
	for _, ch := range channels {
		sb.WriteString(fmt.Sprintf("    %s[(\"%s\")]\n", chanID(ch), ch))
	}

	aliases := make(map[string]string)
	prog.Walk(func(_ string, ins *program.Instr) {
		if ins.Op == program.OpSpawn && ins.As != "" {
			aliases[ins.As] = ins.Fiber
		}
	})

	seen := make(map[string]bool)
	edge := func(line string) {
		if !seen[line] {
			seen[line] = true
			sb.WriteString(line)
		}
	}
	prog.Walk(func(fiber string, ins *program.Instr) {
		from := fiberID(fiber)
		switch ins.Op {
		case program.OpSpawn:
			edge(fmt.Sprintf("    %s --> %s\n", from, fiberID(ins.Fiber)))
		case program.OpWrite:
			edge(fmt.Sprintf("    %s -- write --> %s\n", from, chanID(ins.Chan)))
		case program.OpRead:
			edge(fmt.Sprintf("    %s -- read --> %s\n", chanID(ins.Chan), from))
		case program.OpKill:
			if target, ok := aliases[ins.Fiber]; ok {
				edge(fmt.Sprintf("    %s -. kill .-> %s\n", from, fiberID(target)))
			}
		}
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef finished fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef blocked fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		styled := make(map[string]bool)
		for _, name := range overlay.Finished {
			id := fiberID(name)
			if !styled[id] && name != "" {
				styled[id] = true
				sb.WriteString(fmt.Sprintf("    class %s finished;\n", id))
			}
		}
		for _, name := range overlay.Blocked {
			if name != "" {
				sb.WriteString(fmt.Sprintf("    class %s blocked;\n", fiberID(name)))
			}
		}
	}

	return sb.String()
}

func fiberID(name string) string {
	if name == "start" {
		return "start"
	}
	return "f_" + sanitizeMermaidID(name)
}

func chanID(name string) string { return "c_" + sanitizeMermaidID(name) }

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
