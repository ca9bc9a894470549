package garaga

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/dragan2234/garaga/curves"
)

// checkSegmentInvariants verifies the builtin cell invariants: every
// referenced offset precedes the cell, normal ADD/MUL cells hold the result
// of their operands, sub form cells satisfy value[result] = value[left] +
// value[offset], and inv form cells satisfy value[left]·value[offset] = 1.
func checkSegmentInvariants(t *testing.T, vs *ValueSegment) {
	t.Helper()
	for _, cell := range vs.Cells() {
		if cell.Source != Builtin {
			continue
		}
		ins := cell.Instr
		if ins.Left >= cell.Offset {
			t.Fatalf("cell %d: left operand %d not strictly before", cell.Offset, ins.Left)
		}
		left := vs.Cell(ins.Left).Felt

		switch ins.Op {
		case OpAdd:
			switch {
			case ins.Result == cell.Offset:
				if ins.Right >= cell.Offset {
					t.Fatalf("cell %d: right operand %d not strictly before", cell.Offset, ins.Right)
				}
				sum := left.Add(vs.Cell(ins.Right).Felt)
				if !cell.Felt.Equal(sum) {
					t.Errorf("cell %d: ADD value mismatch", cell.Offset)
				}
			case ins.Right == cell.Offset:
				if ins.Result >= cell.Offset {
					t.Fatalf("cell %d: sub form result %d not strictly before", cell.Offset, ins.Result)
				}
				sum := left.Add(cell.Felt)
				if !vs.Cell(ins.Result).Felt.Equal(sum) {
					t.Errorf("cell %d: sub form value mismatch", cell.Offset)
				}
			default:
				t.Errorf("cell %d: malformed ADD instruction %+v", cell.Offset, ins)
			}
		case OpMul:
			switch {
			case ins.Right == cell.Offset && ins.Result == cell.Offset:
				if !left.Mul(cell.Felt).IsOne() {
					t.Errorf("cell %d: inv form value mismatch", cell.Offset)
				}
			case ins.Result == cell.Offset:
				if ins.Right >= cell.Offset {
					t.Fatalf("cell %d: right operand %d not strictly before", cell.Offset, ins.Right)
				}
				prod := left.Mul(vs.Cell(ins.Right).Felt)
				if !cell.Felt.Equal(prod) {
					t.Errorf("cell %d: MUL value mismatch", cell.Offset)
				}
			default:
				t.Errorf("cell %d: malformed MUL instruction %+v", cell.Offset, ins)
			}
		}
	}
}

func TestBuiltinForms(t *testing.T) {
	c, err := NewModuloCircuit("builtins", ecc.BN254)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := c.WriteInput(c.Field.NewElementFromUint64(15))
	b := c.WriteInput(c.Field.NewElementFromUint64(4))

	sum := c.Add(a, b)
	if sum.Felt.BigInt().Int64() != 19 {
		t.Errorf("15 + 4 = %s", sum.Felt)
	}
	diff := c.Sub(a, b)
	if diff.Felt.BigInt().Int64() != 11 {
		t.Errorf("15 - 4 = %s", diff.Felt)
	}
	prod := c.Mul(a, b)
	if prod.Felt.BigInt().Int64() != 60 {
		t.Errorf("15 * 4 = %s", prod.Felt)
	}
	neg := c.Neg(b)
	if !neg.Felt.Add(b.Felt).IsZero() {
		t.Errorf("-4 + 4 != 0")
	}
	inv, err := c.Inv(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.Felt.Mul(b.Felt).IsOne() {
		t.Errorf("4 * 4⁻¹ != 1")
	}
	if _, err := c.Inv(c.SetOrGetConstant(c.Field.Zero())); err == nil {
		t.Errorf("expected error inverting zero")
	}

	checkSegmentInvariants(t, c.Segment)
}

func TestConstantPoolDeduplication(t *testing.T) {
	c, err := NewModuloCircuit("constants", ecc.BN254)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := c.SetOrGetConstant(c.Field.NewElementFromUint64(82))
	b := c.SetOrGetConstant(c.Field.NewElementFromUint64(82))
	if a != b {
		t.Errorf("equal constants got distinct cells")
	}
	other := c.SetOrGetConstant(c.Field.NewElementFromUint64(83))
	if a == other {
		t.Errorf("distinct constants share a cell")
	}
	if got := c.Segment.CountBySource(Constant); got != 2 {
		t.Errorf("constant pool has %d cells, want 2", got)
	}
}

func TestSubAndAssert(t *testing.T) {
	c, err := NewModuloCircuit("assert", ecc.BN254)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := c.WriteInput(c.Field.NewElementFromUint64(9))
	b := c.WriteInput(c.Field.NewElementFromUint64(9))
	c.AssertEq(a, b)

	instrs := c.Segment.AssertEqInstructions()
	if len(instrs) != 1 {
		t.Fatalf("got %d assert instructions, want 1", len(instrs))
	}
	ins := instrs[0]
	// value[lhs] = value[rhs] + value[zero]
	want := c.Segment.Cell(ins.Left).Felt.Add(c.Segment.Cell(ins.Right).Felt)
	if !c.Segment.Cell(ins.Result).Felt.Equal(want) {
		t.Errorf("assert instruction does not hold over the segment")
	}
}

func TestNonInteractiveTransform(t *testing.T) {
	c, err := NewModuloCircuit("transform", ecc.BN254)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// interleave provenances on purpose
	x := c.WriteInput(c.Field.NewElementFromUint64(5))
	w := c.WriteCommit(c.Field.NewElementFromUint64(7))
	s := c.Mul(x, w)
	k := c.SetOrGetConstant(c.Field.NewElementFromUint64(3))
	u := c.Add(s, k)
	c.WriteWitness(c.Field.NewElementFromUint64(11))
	c.AssertEq(u, u)

	transformed, offsetMap := c.Segment.NonInteractiveTransform()
	if transformed.Len() != c.Segment.Len() {
		t.Fatalf("transform changed segment size")
	}

	// provenance groups must be contiguous and ordered
	order := map[WriteOp]int{Constant: 0, Input: 1, Commit: 2, Witness: 3, NativeFelt: 4, Builtin: 5}
	prev := -1
	for _, cell := range transformed.Cells() {
		if order[cell.Source] < prev {
			t.Fatalf("provenance %v out of order", cell.Source)
		}
		prev = order[cell.Source]
	}

	// values ride along with their cells
	for _, cell := range c.Segment.Cells() {
		moved := transformed.Cell(offsetMap[cell.Offset])
		if !moved.Felt.Equal(cell.Felt) || moved.Source != cell.Source {
			t.Errorf("cell %d not preserved by transform", cell.Offset)
		}
	}
	checkSegmentInvariants(t, transformed)
}

func TestCompileAndRoundTrip(t *testing.T) {
	c, err := NewExtensionFieldCircuit("compile_test", ecc.BN254, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := make([]*Value, 6)
	b := make([]*Value, 6)
	for i := 0; i < 6; i++ {
		a[i] = c.WriteInput(c.Field.NewElementFromUint64(uint64(i + 1)))
		b[i] = c.WriteInput(c.Field.NewElementFromUint64(uint64(2*i + 1)))
	}
	r, err := c.ExtfMul([][]*Value{a, b}, 6, nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.ExtendOutput(r)
	if err := c.FinalizeCircuit(0, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cc, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.InputLen != 12*curves.NLimbs {
		t.Errorf("input length = %d limbs, want %d", cc.InputLen, 12*curves.NLimbs)
	}
	if cc.NEuclideanEquations != 1 {
		t.Errorf("Euclidean equations = %d, want 1", cc.NEuclideanEquations)
	}
	if cc.NAssertEq != 1 {
		t.Errorf("assert count = %d, want 1", cc.NAssertEq)
	}
	if cc.AddModN != len(cc.AddOffsets) || cc.MulModN != len(cc.MulOffsets) {
		t.Errorf("instruction counts disagree with offset lists")
	}
	for _, triple := range append(append([][3]int{}, cc.AddOffsets...), cc.MulOffsets...) {
		for _, off := range triple {
			if off%curves.NLimbs != 0 {
				t.Fatalf("offset %d not limb aligned", off)
			}
		}
	}
	if len(cc.OutputOffsets) != 6 {
		t.Errorf("got %d output offsets, want 6", len(cc.OutputOffsets))
	}

	path := filepath.Join(t.TempDir(), "compiled.bin")
	if err := SaveCompiledCircuit(cc, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadCompiledCircuit(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Name != cc.Name || loaded.CurveID != cc.CurveID {
		t.Errorf("identity fields changed across save/load")
	}
	if !reflect.DeepEqual(loaded.AddOffsets, cc.AddOffsets) ||
		!reflect.DeepEqual(loaded.MulOffsets, cc.MulOffsets) ||
		!reflect.DeepEqual(loaded.OutputOffsets, cc.OutputOffsets) ||
		!reflect.DeepEqual(loaded.PoseidonIndexes, cc.PoseidonIndexes) {
		t.Errorf("offset lists changed across save/load")
	}
	if len(loaded.Constants) != len(cc.Constants) {
		t.Fatalf("constant count changed across save/load")
	}
	for i := range cc.Constants {
		for j := range cc.Constants[i] {
			if cc.Constants[i][j].Cmp(loaded.Constants[i][j]) != 0 {
				t.Errorf("constant %d limb %d changed across save/load", i, j)
			}
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
