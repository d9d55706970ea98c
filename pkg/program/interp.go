package program

import (
	"github.com/aretw0/strand/pkg/domain"
)

// cursor walks one block of instructions.
type cursor struct {
	code []Instr
	pc   int
	left int // further passes over code; -1 means forever
}

// interpreter is the continuation of a program fiber.
// The program counter lives in an explicit cursor stack so a step can
// suspend anywhere, including inside nested repeat blocks.
type interpreter struct {
	frame *Frame
	stack []cursor

	// finish completes the suspended instruction once the fiber is resumed,
	// e.g. storing the value a read received.
	finish func()
}

func newInterpreter(frame *Frame, code []Instr) *interpreter {
	return &interpreter{
		frame: frame,
		stack: []cursor{{code: code}},
	}
}

// Resume implements domain.Continuation.
func (in *interpreter) Resume(self *domain.Fiber) *domain.Request {
	if in.finish != nil {
		in.finish()
		in.finish = nil
	}
	for {
		ins := in.fetch()
		if ins == nil {
			return nil
		}
		if req := in.exec(self, ins); req != nil {
			return req
		}
	}
}

// Stop implements domain.Continuation.
func (in *interpreter) Stop() {
	in.stack = nil
	in.finish = nil
}

func (in *interpreter) fetch() *Instr {
	for len(in.stack) > 0 {
		top := &in.stack[len(in.stack)-1]
		if top.pc < len(top.code) {
			ins := &top.code[top.pc]
			top.pc++
			return ins
		}
		if top.left != 0 {
			if top.left > 0 {
				top.left--
			}
			top.pc = 0
			continue
		}
		in.stack = in.stack[:len(in.stack)-1]
	}
	return nil
}

// exec runs one instruction. It returns the request to suspend on, or nil
// if the instruction completed without the scheduler.
func (in *interpreter) exec(self *domain.Fiber, ins *Instr) *domain.Request {
	fr := in.frame
	switch ins.Op {
	case OpSet:
		fr.SetVar(ins.Var, fr.resolve(ins.Value))
		return nil

	case OpRepeat, OpLoop:
		left := ins.Times - 1
		if ins.Times < 0 {
			left = -1
		}
		in.stack = append(in.stack, cursor{code: ins.Body, left: left})
		return nil

	case OpYield:
		return domain.Yield()

	case OpSpawn:
		child := fr.newFiber(ins.Fiber, fr.prog.Fibers[ins.Fiber])
		if ins.As != "" {
			fr.aliases[ins.As] = child
		}
		return domain.Spawn(child)

	case OpRead:
		slot := &domain.Slot{}
		if ins.Into != "" {
			into := ins.Into
			in.finish = func() { fr.SetVar(into, slot.Value) }
		}
		return domain.Read(fr.Channel(ins.Chan), slot)

	case OpWrite:
		return domain.Write(fr.Channel(ins.Chan), &domain.Slot{Value: fr.resolve(ins.Value)})

	case OpKill:
		target := self
		if ins.Fiber != Self {
			target = fr.aliases[ins.Fiber]
		}
		if target == nil {
			return nil
		}
		return domain.Kill(target)

	case OpPrint:
		return domain.Host(domain.RequestPrint, fr.render(ins.Text))

	case OpSleep:
		return domain.Host(domain.RequestSleep, ins.Duration)

	case OpHalt:
		return domain.Host(domain.RequestHalt, fr.render(ins.Reason))

	case OpCall:
		args, _ := fr.resolve(ins.Args).(map[string]any)
		req := domain.Host(domain.RequestKind(ins.Call), args)
		if ins.Into != "" {
			into := ins.Into
			in.finish = func() { fr.SetVar(into, req.Slot.Value) }
		}
		return req
	}
	return nil
}
