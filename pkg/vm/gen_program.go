package vm

import (
	"fmt"
	"strings"
)

// GenOp is an instruction of the generator body machine. The machine is a
// small stack machine; generator bodies are built with GenBuilder.
type GenOp uint8

const (
	GenPush        GenOp = iota // A: push Consts[A]
	GenPop                      // discard top
	GenDup                      // duplicate top
	GenLoad                     // A: push Locals[A]
	GenStore                    // A: Locals[A] = pop
	GenCall                     // A argc: pop args, this, callee; push result
	GenYield                    // pop value, suspend; push the sent value on resume
	GenYieldStar                // pop iterable, delegate to it; push the final value
	GenAwait                    // pop value, await it; push the result (async only)
	GenJump                     // A: pc = A
	GenJumpIfFalse              // A: pop; jump when falsy
	GenTry                      // A catch, B finally (either may be -1): push handler
	GenLeaveTry                 // A end: pop handler; run finally if any, then go to A
	GenEndFinally               // resume the completion that entered the finally block
	GenReturn                   // pop value, return it
	GenThrow                    // pop value, throw it
)

// String returns a human-readable name for the GenOp.
func (op GenOp) String() string {
	switch op {
	case GenPush:
		return "Push"
	case GenPop:
		return "Pop"
	case GenDup:
		return "Dup"
	case GenLoad:
		return "Load"
	case GenStore:
		return "Store"
	case GenCall:
		return "Call"
	case GenYield:
		return "Yield"
	case GenYieldStar:
		return "YieldStar"
	case GenAwait:
		return "Await"
	case GenJump:
		return "Jump"
	case GenJumpIfFalse:
		return "JumpIfFalse"
	case GenTry:
		return "Try"
	case GenLeaveTry:
		return "LeaveTry"
	case GenEndFinally:
		return "EndFinally"
	case GenReturn:
		return "Return"
	case GenThrow:
		return "Throw"
	default:
		return fmt.Sprintf("GenOp(%d)", uint8(op))
	}
}

// GenInstr is one instruction with up to two operands.
type GenInstr struct {
	Op   GenOp
	A, B int
}

// GenProgram is a validated generator body. Arguments are copied into the
// first locals when the generator is created.
type GenProgram struct {
	Name   string
	Code   []GenInstr
	Consts []Value
	Locals int

	usesAwait bool
}

// Disassemble returns a human-readable listing of the program.
func (p *GenProgram) Disassemble() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("== %s ==\n", p.Name))
	for pc, ins := range p.Code {
		builder.WriteString(fmt.Sprintf("%04d      %-12s", pc, ins.Op))
		switch ins.Op {
		case GenPush:
			builder.WriteString(fmt.Sprintf(" %d (%s)", ins.A, p.Consts[ins.A].String()))
		case GenLoad, GenStore:
			builder.WriteString(fmt.Sprintf(" L%d", ins.A))
		case GenCall:
			builder.WriteString(fmt.Sprintf(" argc=%d", ins.A))
		case GenJump, GenJumpIfFalse, GenLeaveTry:
			builder.WriteString(fmt.Sprintf(" -> %04d", ins.A))
		case GenTry:
			builder.WriteString(fmt.Sprintf(" catch=%d finally=%d", ins.A, ins.B))
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

// Label names a position in a program under construction.
type Label int

// NoLabel marks an absent catch or finally block.
const NoLabel Label = -1

// GenBuilder assembles a GenProgram. Errors are collected and reported by
// Build.
type GenBuilder struct {
	name   string
	code   []GenInstr
	consts []Value
	locals int
	labels []int
	errs   []string
}

// NewGenBuilder starts a program.
func NewGenBuilder(name string) *GenBuilder {
	return &GenBuilder{name: name}
}

// Locals sets the number of local slots.
func (b *GenBuilder) Locals(n int) *GenBuilder {
	b.locals = n
	return b
}

func (b *GenBuilder) emit(op GenOp, a, c int) *GenBuilder {
	b.code = append(b.code, GenInstr{Op: op, A: a, B: c})
	return b
}

// Push pushes a constant.
func (b *GenBuilder) Push(v Value) *GenBuilder {
	b.consts = append(b.consts, v)
	return b.emit(GenPush, len(b.consts)-1, 0)
}

func (b *GenBuilder) Pop() *GenBuilder { return b.emit(GenPop, 0, 0) }
func (b *GenBuilder) Dup() *GenBuilder { return b.emit(GenDup, 0, 0) }

func (b *GenBuilder) Load(local int) *GenBuilder {
	b.checkLocal(local)
	return b.emit(GenLoad, local, 0)
}

func (b *GenBuilder) Store(local int) *GenBuilder {
	b.checkLocal(local)
	return b.emit(GenStore, local, 0)
}

func (b *GenBuilder) checkLocal(local int) {
	if local < 0 {
		b.errs = append(b.errs, fmt.Sprintf("negative local index %d", local))
	}
}

// Call expects the callee, this and argc arguments on the stack.
func (b *GenBuilder) Call(argc int) *GenBuilder { return b.emit(GenCall, argc, 0) }

func (b *GenBuilder) Yield() *GenBuilder     { return b.emit(GenYield, 0, 0) }
func (b *GenBuilder) YieldStar() *GenBuilder { return b.emit(GenYieldStar, 0, 0) }
func (b *GenBuilder) Await() *GenBuilder     { return b.emit(GenAwait, 0, 0) }
func (b *GenBuilder) Return() *GenBuilder    { return b.emit(GenReturn, 0, 0) }
func (b *GenBuilder) Throw() *GenBuilder     { return b.emit(GenThrow, 0, 0) }

// NewLabel allocates an unplaced label.
func (b *GenBuilder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// Mark places l at the next instruction.
func (b *GenBuilder) Mark(l Label) *GenBuilder {
	if int(l) < 0 || int(l) >= len(b.labels) {
		b.errs = append(b.errs, fmt.Sprintf("unknown label %d", l))
		return b
	}
	if b.labels[l] >= 0 {
		b.errs = append(b.errs, fmt.Sprintf("label %d placed twice", l))
	}
	b.labels[l] = len(b.code)
	return b
}

func (b *GenBuilder) Jump(l Label) *GenBuilder        { return b.emit(GenJump, int(l), 0) }
func (b *GenBuilder) JumpIfFalse(l Label) *GenBuilder { return b.emit(GenJumpIfFalse, int(l), 0) }

// Try opens a protected region. The catch block starts with the exception
// on the stack. Both the protected region and the catch block end with
// LeaveTry.
func (b *GenBuilder) Try(catch, finally Label) *GenBuilder {
	if catch == NoLabel && finally == NoLabel {
		b.errs = append(b.errs, "try without catch or finally")
	}
	return b.emit(GenTry, int(catch), int(finally))
}

func (b *GenBuilder) LeaveTry(end Label) *GenBuilder { return b.emit(GenLeaveTry, int(end), 0) }

// EndFinally closes a finally block.
func (b *GenBuilder) EndFinally() *GenBuilder { return b.emit(GenEndFinally, 0, 0) }

// Build resolves labels and validates the program.
func (b *GenBuilder) Build() (*GenProgram, error) {
	p := &GenProgram{
		Name:   b.name,
		Code:   make([]GenInstr, len(b.code)),
		Consts: b.consts,
		Locals: b.locals,
	}
	errs := append([]string(nil), b.errs...)
	resolve := func(pc int, l int) int {
		if l == int(NoLabel) {
			return -1
		}
		if l < 0 || l >= len(b.labels) || b.labels[l] < 0 {
			errs = append(errs, fmt.Sprintf("%04d: unplaced label %d", pc, l))
			return -1
		}
		return b.labels[l]
	}
	for pc, ins := range b.code {
		switch ins.Op {
		case GenJump, GenJumpIfFalse, GenLeaveTry:
			ins.A = resolve(pc, ins.A)
		case GenTry:
			ins.A = resolve(pc, ins.A)
			ins.B = resolve(pc, ins.B)
		case GenLoad, GenStore:
			if ins.A >= b.locals {
				errs = append(errs, fmt.Sprintf("%04d: local %d out of range (%d locals)", pc, ins.A, b.locals))
			}
		case GenAwait:
			p.usesAwait = true
		}
		p.Code[pc] = ins
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("generator program %q: %s", b.name, strings.Join(errs, "; "))
	}
	return p, nil
}
