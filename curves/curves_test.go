package curves

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
)

func TestBaseField(t *testing.T) {
	for _, id := range []ecc.ID{ecc.BN254, ecc.BLS12_381} {
		field, err := BaseField(id)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", id, err)
		}
		if field.Modulus().Cmp(id.BaseField()) != 0 {
			t.Errorf("wrong modulus for %v", id)
		}
	}
	if _, err := BaseField(ecc.BLS12_377); err == nil {
		t.Errorf("expected error for unsupported curve")
	}
}

func TestIrreduciblePoly(t *testing.T) {
	tests := []struct {
		id     ecc.ID
		degree int
		// Φ(1), as a small signed integer before reduction
		atOne int64
	}{
		{ecc.BN254, 6, 82 - 18 + 1},
		{ecc.BN254, 12, 82 - 18 + 1},
		{ecc.BLS12_381, 6, 2 - 2 + 1},
		{ecc.BLS12_381, 12, 2 - 2 + 1},
	}
	for _, tc := range tests {
		phi, err := IrreduciblePoly(tc.id, tc.degree)
		if err != nil {
			t.Fatalf("unexpected error for %v degree %d: %v", tc.id, tc.degree, err)
		}
		if phi.Degree() != tc.degree {
			t.Errorf("%v degree %d: got degree %d", tc.id, tc.degree, phi.Degree())
		}
		field, _ := BaseField(tc.id)
		want := field.NewElement(big.NewInt(tc.atOne))
		if got := phi.Eval(field.One()); !got.Equal(want) {
			t.Errorf("%v degree %d: Φ(1) = %s, want %s", tc.id, tc.degree, got, want)
		}
	}
	if _, err := IrreduciblePoly(ecc.BN254, 7); err == nil {
		t.Errorf("expected error for unknown degree")
	}
}

func TestSplitLimbs(t *testing.T) {
	v, _ := new(big.Int).SetString("123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", 16)
	limbs := SplitLimbs(v)

	recombined := new(big.Int)
	for i := NLimbs - 1; i >= 0; i-- {
		recombined.Lsh(recombined, LimbBits)
		recombined.Add(recombined, limbs[i])
	}
	if recombined.Cmp(v) != 0 {
		t.Errorf("limb recombination mismatch")
	}
	bound := new(big.Int).Lsh(big.NewInt(1), LimbBits)
	for i, limb := range limbs {
		if limb.Cmp(bound) >= 0 || limb.Sign() < 0 {
			t.Errorf("limb %d out of range: %s", i, limb)
		}
	}
}
