// package hints computes the nondeterministic witnesses of the deferred
// extension field operations: quotients and remainders of products modulo
// the tower's irreducible polynomial, divisions, and torus squares. The
// values produced here are committed by the circuit and proven correct by
// the single polynomial identity checked at finalization.
package hints

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/dragan2234/garaga/algebra"
	"github.com/dragan2234/garaga/curves"
)

// ExtFMulDivmod computes Q and R with Π Pᵢ = Q·Φ + R over F_p[x], where Φ is
// the irreducible polynomial of the degree d extension of the curve's base
// field. R has degree below d and is returned padded to exactly d
// coefficients; Q is returned trimmed.
func ExtFMulDivmod(ps [][]algebra.Felt, id ecc.ID, d int) ([]algebra.Felt, []algebra.Felt, error) {
	if len(ps) == 0 {
		return nil, nil, fmt.Errorf("product of zero factors")
	}
	field, err := curves.BaseField(id)
	if err != nil {
		return nil, nil, err
	}
	phi, err := curves.IrreduciblePoly(id, d)
	if err != nil {
		return nil, nil, err
	}
	prod := algebra.NewPolynomial(field, ps[0])
	for _, p := range ps[1:] {
		prod = prod.Mul(algebra.NewPolynomial(field, p))
	}
	q, r, err := prod.DivMod(phi)
	if err != nil {
		return nil, nil, err
	}
	return q.Coefficients(), r.CoefficientsPadded(d), nil
}

// ExtFDiv computes W = X·Y⁻¹ mod Φ. It errors with algebra.ErrDivideByZero
// when Y is zero or not invertible in the extension.
func ExtFDiv(x, y []algebra.Felt, id ecc.ID, d int) ([]algebra.Felt, error) {
	field, err := curves.BaseField(id)
	if err != nil {
		return nil, err
	}
	phi, err := curves.IrreduciblePoly(id, d)
	if err != nil {
		return nil, err
	}
	yPoly := algebra.NewPolynomial(field, y)
	if yPoly.IsZero() {
		return nil, fmt.Errorf("extension field division by zero: %w", algebra.ErrDivideByZero)
	}
	yInv, err := yPoly.InverseMod(phi)
	if err != nil {
		return nil, err
	}
	w := algebra.NewPolynomial(field, x).Mul(yInv)
	_, w, err = w.DivMod(phi)
	if err != nil {
		return nil, err
	}
	return w.CoefficientsPadded(d), nil
}

// TorusSquare computes SQ = (X + v/X) / 2 mod Φ with v = x, the compressed
// square on the algebraic torus.
func TorusSquare(x []algebra.Felt, id ecc.ID, d int) ([]algebra.Felt, error) {
	field, err := curves.BaseField(id)
	if err != nil {
		return nil, err
	}
	v := algebra.XPolynomial(field).CoefficientsPadded(d)
	vOverX, err := ExtFDiv(v, x, id, d)
	if err != nil {
		return nil, err
	}
	halfInv, err := field.NewElement(big.NewInt(2)).Inverse()
	if err != nil {
		return nil, err
	}
	sq := algebra.NewPolynomial(field, x).
		Add(algebra.NewPolynomial(field, vOverX)).
		MulScalar(halfInv)
	return sq.CoefficientsPadded(d), nil
}
