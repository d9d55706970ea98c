package program

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"
)

// MainFiber is the fiber a unit's main entry point runs.
const MainFiber = "main"

// Op names a step.
type Op string

const (
	OpYield  Op = "yield"
	OpSpawn  Op = "spawn"
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpKill   Op = "kill"
	OpSet    Op = "set"
	OpPrint  Op = "print"
	OpSleep  Op = "sleep"
	OpCall   Op = "call"
	OpHalt   Op = "halt"
	OpRepeat Op = "repeat"
	OpLoop   Op = "loop"
)

// Self is the kill target naming the running fiber.
const Self = "self"

// reserved fiber names clash with the unit entry points.
var reserved = map[string]bool{"start": true, "create_frame": true, Self: true}

// primary is the argument a scalar shorthand such as `print: hi` fills.
var primary = map[Op]string{
	OpSpawn: "fiber",
	OpRead:  "chan",
	OpKill:  "fiber",
	OpPrint: "text",
	OpSleep: "duration",
	OpCall:  "op",
	OpHalt:  "reason",
}

// Instr is one compiled step.
type Instr struct {
	Op       Op
	Fiber    string
	As       string
	Chan     string
	Into     string
	Var      string
	Value    any
	Text     string
	Duration time.Duration
	Call     string
	Args     map[string]any
	Reason   string
	Times    int // -1 repeats forever
	Body     []Instr
}

// Program is a compiled unit.
type Program struct {
	Name        string
	Description string
	Channels    []string
	Vars        map[string]any
	Start       []Instr
	Fibers      map[string][]Instr
}

// FiberNames returns the declared fiber names in order.
func (p *Program) FiberNames() []string {
	names := make([]string, 0, len(p.Fibers))
	for name := range p.Fibers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type stepArgs struct {
	Fiber    string         `mapstructure:"fiber"`
	As       string         `mapstructure:"as"`
	Chan     string         `mapstructure:"chan"`
	Into     string         `mapstructure:"into"`
	Var      string         `mapstructure:"var"`
	Value    any            `mapstructure:"value"`
	Text     string         `mapstructure:"text"`
	Duration string         `mapstructure:"duration"`
	Op       string         `mapstructure:"op"`
	Args     map[string]any `mapstructure:"args"`
	Reason   string         `mapstructure:"reason"`
	Times    int            `mapstructure:"times"`
	Steps    []any          `mapstructure:"steps"`
}

// Compile validates a unit and turns it into a Program.
// All problems found are reported together.
func Compile(spec *UnitSpec) (*Program, error) {
	if spec.Name == "" {
		return nil, errors.New("unit missing name")
	}
	c := &compiler{
		spec:     spec,
		channels: make(map[string]bool, len(spec.Channels)),
	}
	for _, ch := range spec.Channels {
		if c.channels[ch] {
			c.fail("channels", fmt.Errorf("duplicate channel %q", ch))
		}
		c.channels[ch] = true
	}
	if _, ok := spec.Fibers[MainFiber]; !ok {
		c.fail("fibers", fmt.Errorf("missing %q fiber", MainFiber))
	}

	prog := &Program{
		Name:        spec.Name,
		Description: spec.Description,
		Channels:    append([]string(nil), spec.Channels...),
		Vars:        make(map[string]any, len(spec.Vars)),
		Fibers:      make(map[string][]Instr, len(spec.Fibers)),
	}
	for k, v := range spec.Vars {
		prog.Vars[k] = v
	}
	prog.Start = c.steps("start", spec.Start)
	for name, steps := range spec.Fibers {
		if reserved[name] {
			c.fail("fibers", fmt.Errorf("fiber name %q is reserved", name))
			continue
		}
		prog.Fibers[name] = c.steps(name, steps)
	}

	if len(c.errs) > 0 {
		return nil, fmt.Errorf("unit %s: %w", spec.Name, errors.Join(c.errs...))
	}
	return prog, nil
}

type compiler struct {
	spec     *UnitSpec
	channels map[string]bool
	errs     []error
}

func (c *compiler) fail(where string, err error) {
	c.errs = append(c.errs, fmt.Errorf("%s: %w", where, err))
}

func (c *compiler) steps(where string, raw []any) []Instr {
	out := make([]Instr, 0, len(raw))
	for i, step := range raw {
		at := fmt.Sprintf("%s[%d]", where, i)
		ins, err := c.step(at, step)
		if err != nil {
			c.fail(at, err)
			continue
		}
		out = append(out, ins)
	}
	return out
}

func (c *compiler) step(at string, raw any) (Instr, error) {
	var op Op
	var body any
	switch s := raw.(type) {
	case string:
		op = Op(s)
	case map[string]any:
		if len(s) != 1 {
			return Instr{}, fmt.Errorf("step must have exactly one operation, got %d", len(s))
		}
		for k, v := range s {
			op, body = Op(k), v
		}
	default:
		return Instr{}, fmt.Errorf("invalid step of type %T", raw)
	}

	args, err := decodeArgs(op, body)
	if err != nil {
		return Instr{}, fmt.Errorf("%s: %w", op, err)
	}

	ins := Instr{Op: op}
	switch op {
	case OpYield:
	case OpSpawn:
		if _, ok := c.spec.Fibers[args.Fiber]; !ok {
			return ins, fmt.Errorf("spawn: unknown fiber %q", args.Fiber)
		}
		ins.Fiber, ins.As = args.Fiber, args.As
	case OpRead:
		if err := c.channel(args.Chan); err != nil {
			return ins, fmt.Errorf("read: %w", err)
		}
		ins.Chan, ins.Into = args.Chan, args.Into
	case OpWrite:
		if err := c.channel(args.Chan); err != nil {
			return ins, fmt.Errorf("write: %w", err)
		}
		ins.Chan, ins.Value = args.Chan, args.Value
	case OpKill:
		if args.Fiber == "" {
			return ins, errors.New("kill: missing fiber")
		}
		ins.Fiber = args.Fiber
	case OpSet:
		if args.Var == "" {
			return ins, errors.New("set: missing var")
		}
		ins.Var, ins.Value = args.Var, args.Value
	case OpPrint:
		ins.Text = args.Text
	case OpSleep:
		d, err := time.ParseDuration(args.Duration)
		if err != nil {
			return ins, fmt.Errorf("sleep: %w", err)
		}
		ins.Duration = d
	case OpCall:
		if args.Op == "" {
			return ins, errors.New("call: missing op")
		}
		ins.Call, ins.Args, ins.Into = args.Op, args.Args, args.Into
	case OpHalt:
		ins.Reason = args.Reason
	case OpRepeat, OpLoop:
		ins.Body = c.steps(at+"."+string(op), args.Steps)
		if len(ins.Body) == 0 {
			return ins, fmt.Errorf("%s: empty body", op)
		}
		ins.Times = -1
		if op == OpRepeat {
			if args.Times < 1 {
				return ins, fmt.Errorf("repeat: times must be positive, got %d", args.Times)
			}
			ins.Times = args.Times
		} else if !suspends(ins.Body) {
			return ins, errors.New("loop: body never gives up control")
		}
	default:
		return ins, fmt.Errorf("unknown operation %q", op)
	}
	return ins, nil
}

func (c *compiler) channel(name string) error {
	if name == "" {
		return errors.New("missing chan")
	}
	if !c.channels[name] {
		return fmt.Errorf("undeclared channel %q", name)
	}
	return nil
}

// decodeArgs normalises the shorthand forms and decodes the arguments.
func decodeArgs(op Op, body any) (stepArgs, error) {
	var args stepArgs
	var input map[string]any
	switch b := body.(type) {
	case nil:
		return args, nil
	case map[string]any:
		input = b
	case []any:
		input = map[string]any{"steps": b}
	default:
		key, ok := primary[op]
		if !ok {
			return args, errors.New("does not take a scalar argument")
		}
		input = map[string]any{key: b}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &args,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return args, err
	}
	if err := dec.Decode(input); err != nil {
		return args, err
	}
	return args, nil
}

// suspends reports whether running body ever hands control to another fiber
// or the host. Kill and spawn keep the caller's turn, and a kill of an alias
// that was never spawned produces no request at all.
func suspends(body []Instr) bool {
	for _, ins := range body {
		switch ins.Op {
		case OpSet, OpKill, OpSpawn:
		case OpRepeat:
			if suspends(ins.Body) {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// Walk calls fn for every instruction of every fiber, nested bodies included.
// Start steps are reported under the fiber name "start".
func (p *Program) Walk(fn func(fiber string, ins *Instr)) {
	var visit func(fiber string, code []Instr)
	visit = func(fiber string, code []Instr) {
		for i := range code {
			fn(fiber, &code[i])
			visit(fiber, code[i].Body)
		}
	}
	visit("start", p.Start)
	for _, name := range p.FiberNames() {
		visit(name, p.Fibers[name])
	}
}
