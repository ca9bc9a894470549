package garaga

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/dragan2234/garaga/algebra"
	"github.com/dragan2234/garaga/curves"
)

// ModuloCircuit records a computation over one base field as a value segment
// plus modular ADD and MUL builtin instructions. It underlies the extension
// field circuit and is consumed directly by the back-ends.
type ModuloCircuit struct {
	Name    string
	CurveID ecc.ID
	Field   algebra.Field

	Segment *ValueSegment

	constants map[string]*Value
	output    []*Value
	log       zerolog.Logger
}

// NewModuloCircuit creates an empty circuit over the base field of the curve.
func NewModuloCircuit(name string, id ecc.ID) (*ModuloCircuit, error) {
	field, err := curves.BaseField(id)
	if err != nil {
		return nil, fmt.Errorf("error creating circuit %q: %v", name, err)
	}
	log := logger.Logger().With().Str("circuit", name).Str("curve", id.String()).Logger()
	return &ModuloCircuit{
		Name:      name,
		CurveID:   id,
		Field:     field,
		Segment:   NewValueSegment(name),
		constants: make(map[string]*Value),
		log:       log,
	}, nil
}

// WriteElement appends a cell with the given provenance. Constants go
// through the deduplicated pool.
func (c *ModuloCircuit) WriteElement(v algebra.Felt, source WriteOp) *Value {
	if source == Constant {
		return c.SetOrGetConstant(v)
	}
	return c.Segment.Append(v, source, nil)
}

// SetOrGetConstant returns the pooled cell for v, appending it on first use.
func (c *ModuloCircuit) SetOrGetConstant(v algebra.Felt) *Value {
	key := v.String()
	if cell, ok := c.constants[key]; ok {
		return cell
	}
	cell := c.Segment.Append(v, Constant, nil)
	c.constants[key] = cell
	return cell
}

// WriteInput appends an INPUT cell. Inputs are absorbed first into the
// transcript at finalization.
func (c *ModuloCircuit) WriteInput(v algebra.Felt) *Value {
	return c.Segment.Append(v, Input, nil)
}

// WriteCommit appends a COMMIT cell holding a value from an off-circuit hint.
func (c *ModuloCircuit) WriteCommit(v algebra.Felt) *Value {
	return c.Segment.Append(v, Commit, nil)
}

// WriteWitness appends a WITNESS cell: a prover supplied value that is never
// absorbed into the transcript.
func (c *ModuloCircuit) WriteWitness(v algebra.Felt) *Value {
	return c.Segment.Append(v, Witness, nil)
}

// WriteNativeFelt appends a FELT cell holding a small unreduced scalar, such
// as a random linear combination coefficient.
func (c *ModuloCircuit) WriteNativeFelt(v algebra.Felt) *Value {
	return c.Segment.Append(v, NativeFelt, nil)
}

// WriteElements appends one cell per value. With a sparsity vector, tag 0
// resolves to the pooled zero constant and tag 2 to the pooled one constant;
// only tag 1 positions are written with the given provenance. Tags that
// disagree with the values are rejected.
func (c *ModuloCircuit) WriteElements(vals []algebra.Felt, source WriteOp, sparsity []int) ([]*Value, error) {
	if sparsity != nil && len(sparsity) != len(vals) {
		return nil, fmt.Errorf("%w: %d values with %d sparsity tags", ErrShapeMismatch, len(vals), len(sparsity))
	}
	out := make([]*Value, len(vals))
	for i, v := range vals {
		if sparsity == nil {
			out[i] = c.WriteElement(v, source)
			continue
		}
		switch sparsity[i] {
		case 0:
			if !v.IsZero() {
				return nil, fmt.Errorf("%w: tag 0 at position %d with value %s", ErrSparsityViolation, i, v)
			}
			out[i] = c.SetOrGetConstant(c.Field.Zero())
		case 2:
			if !v.IsOne() {
				return nil, fmt.Errorf("%w: tag 2 at position %d with value %s", ErrSparsityViolation, i, v)
			}
			out[i] = c.SetOrGetConstant(c.Field.One())
		default:
			out[i] = c.WriteElement(v, source)
		}
	}
	return out, nil
}

// WriteSparseElements writes only the nonzero values and returns them along
// with the natural sparsity vector of the input.
func (c *ModuloCircuit) WriteSparseElements(vals []algebra.Felt, source WriteOp) ([]*Value, []int) {
	sparsity := make([]int, len(vals))
	var cells []*Value
	for i, v := range vals {
		if v.IsZero() {
			continue
		}
		sparsity[i] = 1
		cells = append(cells, c.WriteElement(v, source))
	}
	return cells, sparsity
}

// Add appends an ADD builtin computing a + b. A nil operand acts as the
// neutral element so that accumulator updates can start from an empty state.
func (c *ModuloCircuit) Add(a, b *Value) *Value {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	offset := c.Segment.Len()
	instr := &Instruction{Op: OpAdd, Left: a.Offset, Right: b.Offset, Result: offset}
	return c.Segment.Append(a.Felt.Add(b.Felt), Builtin, instr)
}

// Mul appends a MUL builtin computing a · b.
func (c *ModuloCircuit) Mul(a, b *Value) *Value {
	offset := c.Segment.Len()
	instr := &Instruction{Op: OpMul, Left: a.Offset, Right: b.Offset, Result: offset}
	return c.Segment.Append(a.Felt.Mul(b.Felt), Builtin, instr)
}

// Sub appends an ADD builtin in sub form: the new cell holds a - b and the
// instruction reads value[a] = value[b] + value[new].
func (c *ModuloCircuit) Sub(a, b *Value) *Value {
	offset := c.Segment.Len()
	instr := &Instruction{Op: OpAdd, Left: b.Offset, Right: offset, Result: a.Offset}
	return c.Segment.Append(a.Felt.Sub(b.Felt), Builtin, instr)
}

// Neg appends 0 - a.
func (c *ModuloCircuit) Neg(a *Value) *Value {
	return c.Sub(c.SetOrGetConstant(c.Field.Zero()), a)
}

// Inv appends a MUL builtin in inv form: the new cell holds a⁻¹ and the
// instruction reads value[a] · value[new] = 1.
func (c *ModuloCircuit) Inv(a *Value) (*Value, error) {
	inv, err := a.Felt.Inverse()
	if err != nil {
		return nil, err
	}
	offset := c.Segment.Len()
	instr := &Instruction{Op: OpMul, Left: a.Offset, Right: offset, Result: offset}
	return c.Segment.Append(inv, Builtin, instr), nil
}

// SubAndAssert records the constraint lhs - rhs = equalTo without appending
// a cell: the equality instruction reads value[lhs] = value[rhs] +
// value[equalTo].
func (c *ModuloCircuit) SubAndAssert(lhs, rhs, equalTo *Value) *Value {
	c.Segment.AppendAssertEq(Instruction{Op: OpAdd, Left: rhs.Offset, Right: equalTo.Offset, Result: lhs.Offset})
	return equalTo
}

// AssertEq records the constraint a == b.
func (c *ModuloCircuit) AssertEq(a, b *Value) {
	c.SubAndAssert(a, b, c.SetOrGetConstant(c.Field.Zero()))
}

// EvalPoly evaluates Σ coeffs[i]·powers[i-1] (with the degree zero term taken
// directly) using ADD and MUL builtins.
func (c *ModuloCircuit) EvalPoly(coeffs, powers []*Value) *Value {
	acc := coeffs[0]
	for i := 1; i < len(coeffs); i++ {
		acc = c.Add(acc, c.Mul(coeffs[i], powers[i-1]))
	}
	return acc
}

// ExtendOutput appends cells to the circuit's output list.
func (c *ModuloCircuit) ExtendOutput(vals []*Value) {
	c.output = append(c.output, vals...)
}

// Output returns the output cells in the order they were extended.
func (c *ModuloCircuit) Output() []*Value {
	return c.output
}

// ContinuousOutput reports whether the output cells occupy consecutive
// offsets, letting the back-ends emit a single pointer instead of a list.
func (c *ModuloCircuit) ContinuousOutput() bool {
	for i := 1; i < len(c.output); i++ {
		if c.output[i].Offset != c.output[i-1].Offset+1 {
			return false
		}
	}
	return true
}
