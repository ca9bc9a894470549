package garaga

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
)

// mockZCircuit returns a BN254 degree 6 circuit with witnessed powers of
// z = 2, the setting used to unit test the evaluator without a transcript.
func mockZCircuit(t *testing.T) *ExtensionFieldCircuit {
	t.Helper()
	c, err := NewExtensionFieldCircuit("test", ecc.BN254, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.CreatePowersOfZ(c.Field.NewElementFromUint64(2), true, 0)
	return c
}

func TestEvalPolyDense(t *testing.T) {
	c := mockZCircuit(t)
	x := make([]*Value, 6)
	for i := range x {
		x[i] = c.WriteInput(c.Field.One())
	}
	got, err := c.EvalPolyInPrecomputedZ(x, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 + 2 + 4 + 8 + 16 + 32
	if got.Felt.BigInt().Int64() != 63 {
		t.Errorf("X(2) = %s, want 63", got.Felt)
	}
}

func TestEvalPolySparse(t *testing.T) {
	c := mockZCircuit(t)
	x := []*Value{
		c.WriteInput(c.Field.One()),
		c.WriteInput(c.Field.Zero()),
		c.WriteInput(c.Field.One()),
	}
	got, err := c.EvalPolyInPrecomputedZ(x, []int{1, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Felt.BigInt().Int64() != 5 {
		t.Errorf("X(2) = %s, want 5", got.Felt)
	}
	addCount, _, _ := c.Segment.Summarize()
	if addCount != 1 {
		t.Errorf("sparse evaluation emitted %d ADDs, want exactly 1", addCount)
	}
}

func TestEvalPolySparseLeadingTagTwo(t *testing.T) {
	c := mockZCircuit(t)
	x := []*Value{
		c.WriteInput(c.Field.Zero()),
		c.WriteInput(c.Field.One()),
		c.WriteInput(c.Field.NewElementFromUint64(3)),
	}
	// x + 3x² at z = 2 is 2 + 12
	got, err := c.EvalPolyInPrecomputedZ(x, []int{0, 2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Felt.BigInt().Int64() != 14 {
		t.Errorf("X(2) = %s, want 14", got.Felt)
	}
}

func TestEvalSparseMatchesDense(t *testing.T) {
	c := mockZCircuit(t)
	coeffs := []uint64{7, 0, 1, 0, 9, 1}
	x := make([]*Value, len(coeffs))
	sparsity := make([]int, len(coeffs))
	for i, v := range coeffs {
		x[i] = c.WriteInput(c.Field.NewElementFromUint64(v))
		switch v {
		case 0:
			sparsity[i] = 0
		case 1:
			sparsity[i] = 2
		default:
			sparsity[i] = 1
		}
	}
	dense, err := c.EvalPolyInPrecomputedZ(x, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sparse, err := c.EvalPolyInPrecomputedZ(x, sparsity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dense.Felt.Equal(sparse.Felt) {
		t.Errorf("sparse evaluation %s != dense evaluation %s", sparse.Felt, dense.Felt)
	}
}

func TestEvalPolyDegreeOverflow(t *testing.T) {
	c := mockZCircuit(t)
	x := make([]*Value, 8)
	for i := range x {
		x[i] = c.WriteInput(c.Field.One())
	}
	if _, err := c.EvalPolyInPrecomputedZ(x, nil); err == nil {
		t.Errorf("expected degree overflow error")
	}
}

func TestCreatePowersOfZ(t *testing.T) {
	c, err := NewExtensionFieldCircuit("powers", ecc.BN254, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	z := c.Field.NewElementFromUint64(3)
	powers := c.CreatePowersOfZ(z, false, 4)
	if len(powers) != 4 {
		t.Fatalf("got %d powers, want 4", len(powers))
	}
	want := z
	for i, p := range powers {
		if !p.Felt.Equal(want) {
			t.Errorf("z^%d = %s, want %s", i+1, p.Felt, want)
		}
		want = want.Mul(z)
	}
	// the first power is a native felt, the rest are multiplications
	if powers[0].Source != NativeFelt {
		t.Errorf("z written as %v, want FELT", powers[0].Source)
	}
	for _, p := range powers[1:] {
		if p.Source != Builtin {
			t.Errorf("power written as %v, want BUILTIN", p.Source)
		}
	}
}

// zero coefficients everywhere resolve to the pooled zero constant.
func TestEvalSparseAllZero(t *testing.T) {
	c := mockZCircuit(t)
	x := []*Value{
		c.WriteInput(c.Field.Zero()),
		c.WriteInput(c.Field.Zero()),
	}
	got, err := c.EvalPolyInPrecomputedZ(x, []int{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Felt.IsZero() {
		t.Errorf("all-zero sparse evaluation = %s, want 0", got.Felt)
	}
}
