// package garaga builds arithmetizations of extension field computations
// over the BN254 and BLS12-381 base fields. A circuit is an append-only
// segment of modular values together with ADD and MUL builtin instructions;
// extension field multiplications and divisions are deferred and proven by a
// single polynomial identity at a Fiat-Shamir sampled evaluation point.
package garaga

import (
	"github.com/dragan2234/garaga/algebra"
)

// WriteOp is the provenance tag of a segment cell.
type WriteOp uint8

const (
	Constant WriteOp = iota
	Input
	Commit
	Witness
	NativeFelt
	Builtin
)

var writeOpNames = [...]string{"CONSTANT", "INPUT", "COMMIT", "WITNESS", "FELT", "BUILTIN"}

func (op WriteOp) String() string {
	if int(op) < len(writeOpNames) {
		return writeOpNames[op]
	}
	return "UNKNOWN"
}

// ModOp is the operation of a builtin instruction.
type ModOp uint8

const (
	OpAdd ModOp = iota
	OpMul
)

// Instruction is one modular builtin referencing three segment offsets.
// Normal form has Result equal to the cell's own offset. The sub form of an
// ADD has Right at the cell's offset with value[Result] = value[Left] +
// value[Right]; the inv form of a MUL has Left strictly before the cell and
// Right == Result == the cell's offset with value[Left]·value[Right] = 1.
type Instruction struct {
	Op     ModOp
	Left   int
	Right  int
	Result int
}

// Value is one cell of the value segment. Detached values (Offset < 0) carry
// a felt that was never written to the segment; they only appear as symbolic
// remainders fully described by a sparsity vector.
type Value struct {
	Offset int
	Felt   algebra.Felt
	Source WriteOp
	Instr  *Instruction
}

// ValueSegment is the append-only log of cells underlying a circuit.
// Equality constraints are held apart from the cells: they reference
// existing offsets and materialize nothing.
type ValueSegment struct {
	Name     string
	cells    []*Value
	assertEq []Instruction
}

// NewValueSegment creates an empty segment.
func NewValueSegment(name string) *ValueSegment {
	return &ValueSegment{Name: name}
}

// Append writes a new cell and returns it. Offsets are assigned in strict
// insertion order.
func (vs *ValueSegment) Append(felt algebra.Felt, source WriteOp, instr *Instruction) *Value {
	v := &Value{
		Offset: len(vs.cells),
		Felt:   felt,
		Source: source,
		Instr:  instr,
	}
	vs.cells = append(vs.cells, v)
	return v
}

// Len returns the number of cells.
func (vs *ValueSegment) Len() int {
	return len(vs.cells)
}

// Cell returns the cell at offset.
func (vs *ValueSegment) Cell(offset int) *Value {
	return vs.cells[offset]
}

// Cells returns the underlying cell slice in offset order.
func (vs *ValueSegment) Cells() []*Value {
	return vs.cells
}

// CountBySource returns the number of cells carrying the given provenance.
func (vs *ValueSegment) CountBySource(source WriteOp) int {
	n := 0
	for _, c := range vs.cells {
		if c.Source == source {
			n++
		}
	}
	return n
}

// ValuesBySource returns the felts of all cells with the given provenance,
// in insertion order.
func (vs *ValueSegment) ValuesBySource(source WriteOp) []algebra.Felt {
	var out []algebra.Felt
	for _, c := range vs.cells {
		if c.Source == source {
			out = append(out, c.Felt)
		}
	}
	return out
}

// AppendAssertEq records an equality constraint instruction.
func (vs *ValueSegment) AppendAssertEq(instr Instruction) {
	vs.assertEq = append(vs.assertEq, instr)
}

// AssertEqInstructions returns the recorded equality constraints.
func (vs *ValueSegment) AssertEqInstructions() []Instruction {
	return vs.assertEq
}

// Summarize counts the ADD and MUL builtin instructions and the equality
// constraints of the segment.
func (vs *ValueSegment) Summarize() (addCount, mulCount, assertEqCount int) {
	for _, c := range vs.cells {
		if c.Source != Builtin {
			continue
		}
		switch c.Instr.Op {
		case OpAdd:
			addCount++
		case OpMul:
			mulCount++
		}
	}
	return addCount, mulCount, len(vs.assertEq)
}

// nonInteractiveOrder is the segment layout consumed by the back-ends:
// commitments sit directly after the inputs so that the emitted circuit reads
// them as one contiguous non interactive witness.
var nonInteractiveOrder = [...]WriteOp{Constant, Input, Commit, Witness, NativeFelt, Builtin}

// NonInteractiveTransform returns a copy of the segment with cells reordered
// by provenance (constants, inputs, commitments, witnesses, felts, builtins),
// every instruction remapped, together with the old-to-new offset map.
// Relative order inside each group is preserved, so builtin references still
// point strictly backwards.
func (vs *ValueSegment) NonInteractiveTransform() (*ValueSegment, map[int]int) {
	offsetMap := make(map[int]int, len(vs.cells))
	out := NewValueSegment(vs.Name)

	for _, source := range nonInteractiveOrder {
		for _, c := range vs.cells {
			if c.Source != source {
				continue
			}
			offsetMap[c.Offset] = out.Len()
			out.Append(c.Felt, c.Source, c.Instr)
		}
	}
	for _, c := range out.cells {
		if c.Instr == nil {
			continue
		}
		c.Instr = &Instruction{
			Op:     c.Instr.Op,
			Left:   offsetMap[c.Instr.Left],
			Right:  offsetMap[c.Instr.Right],
			Result: offsetMap[c.Instr.Result],
		}
	}
	for _, instr := range vs.assertEq {
		out.AppendAssertEq(Instruction{
			Op:     instr.Op,
			Left:   offsetMap[instr.Left],
			Right:  offsetMap[instr.Right],
			Result: offsetMap[instr.Result],
		})
	}
	return out, offsetMap
}
