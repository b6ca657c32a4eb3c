package script

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Result is the machine state after executing a script to completion
type Result struct {
	// Stack is the final operand stack, index 0 at the bottom
	Stack []field.Element

	// Alt is the final alt stack; a well-formed compiled script leaves
	// it empty
	Alt []field.Element

	// MaxDepth is the deepest the operand stack grew during execution
	MaxDepth int

	// WitnessUsed is how many witness values were consumed
	WitnessUsed int
}

// machine executes the instruction vocabulary directly. It is the
// reference semantics for the compiler: tests replay compiled scripts here
// and compare the resulting layout against the tracker's final model.
type machine struct {
	stack    []field.Element
	alt      []field.Element
	witness  []field.Element
	nextWit  int
	maxDepth int

	// vfExec holds one flag per open If; an instruction executes only
	// when every flag is true
	vfExec []bool
}

// Execute runs a compiled script against an ordered witness queue and
// returns the final machine state
func Execute(s Script, witness []field.Element) (*Result, error) {
	m := &machine{witness: witness}
	for pc, ins := range s {
		if err := m.step(ins); err != nil {
			return nil, fmt.Errorf("pc %d (%s): %w", pc, ins, err)
		}
	}
	if len(m.vfExec) != 0 {
		return nil, fmt.Errorf("unterminated conditional: %d open", len(m.vfExec))
	}
	return &Result{
		Stack:       m.stack,
		Alt:         m.alt,
		MaxDepth:    m.maxDepth,
		WitnessUsed: m.nextWit,
	}, nil
}

func (m *machine) executing() bool {
	for _, f := range m.vfExec {
		if !f {
			return false
		}
	}
	return true
}

func (m *machine) step(ins Instruction) error {
	// Conditional delimiters run regardless of the execution flag
	switch ins.Opcode {
	case If:
		if !m.executing() {
			m.vfExec = append(m.vfExec, false)
			return nil
		}
		cond, err := m.pop()
		if err != nil {
			return err
		}
		m.vfExec = append(m.vfExec, !cond.IsZero())
		return nil
	case Else:
		if len(m.vfExec) == 0 {
			return fmt.Errorf("ELSE without IF")
		}
		m.vfExec[len(m.vfExec)-1] = !m.vfExec[len(m.vfExec)-1]
		return nil
	case EndIf:
		if len(m.vfExec) == 0 {
			return fmt.Errorf("ENDIF without IF")
		}
		m.vfExec = m.vfExec[:len(m.vfExec)-1]
		return nil
	}

	if !m.executing() {
		return nil
	}

	switch ins.Opcode {
	case PushConst:
		m.push(ins.Value)
	case Dup:
		return m.pick(0)
	case Over:
		return m.pick(1)
	case Pick:
		return m.pick(ins.Depth)
	case Swap:
		return m.roll(1)
	case Rot:
		return m.roll(2)
	case Roll:
		return m.roll(ins.Depth)
	case Drop:
		_, err := m.pop()
		return err
	case Drop2:
		if _, err := m.pop(); err != nil {
			return err
		}
		_, err := m.pop()
		return err
	case ToAlt:
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.alt = append(m.alt, v)
	case FromAlt:
		if len(m.alt) == 0 {
			return fmt.Errorf("alt stack empty")
		}
		v := m.alt[len(m.alt)-1]
		m.alt = m.alt[:len(m.alt)-1]
		m.push(v)
	case Witness:
		if m.nextWit >= len(m.witness) {
			return fmt.Errorf("witness queue exhausted at index %d", m.nextWit)
		}
		m.push(m.witness[m.nextWit])
		m.nextWit++
	case Add, Sub, Mul, Eq, BoolAnd, BoolOr:
		return m.binary(ins.Opcode)
	case Neg:
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.push(v.Neg())
	case Not:
		v, err := m.pop()
		if err != nil {
			return err
		}
		m.push(boolElem(v.IsZero()))
	default:
		return fmt.Errorf("unknown opcode %d", ins.Opcode)
	}
	return nil
}

func (m *machine) binary(op Opcode) error {
	// a is the shallower operand
	a, err := m.pop()
	if err != nil {
		return err
	}
	b, err := m.pop()
	if err != nil {
		return err
	}
	switch op {
	case Add:
		m.push(b.Add(a))
	case Sub:
		m.push(b.Sub(a))
	case Mul:
		m.push(b.Mul(a))
	case Eq:
		m.push(boolElem(b.Equal(a)))
	case BoolAnd:
		m.push(boolElem(!b.IsZero() && !a.IsZero()))
	case BoolOr:
		m.push(boolElem(!b.IsZero() || !a.IsZero()))
	}
	return nil
}

func (m *machine) push(v field.Element) {
	m.stack = append(m.stack, v)
	if len(m.stack) > m.maxDepth {
		m.maxDepth = len(m.stack)
	}
}

func (m *machine) pop() (field.Element, error) {
	if len(m.stack) == 0 {
		return field.Zero, fmt.Errorf("operand stack empty")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *machine) pick(depth int) error {
	i := len(m.stack) - 1 - depth
	if i < 0 {
		return fmt.Errorf("pick depth %d beyond stack height %d", depth, len(m.stack))
	}
	m.push(m.stack[i])
	return nil
}

func (m *machine) roll(depth int) error {
	i := len(m.stack) - 1 - depth
	if i < 0 {
		return fmt.Errorf("roll depth %d beyond stack height %d", depth, len(m.stack))
	}
	v := m.stack[i]
	m.stack = append(m.stack[:i], m.stack[i+1:]...)
	m.push(v)
	// rolling never grows the stack
	return nil
}

func boolElem(b bool) field.Element {
	if b {
		return field.One
	}
	return field.Zero
}
