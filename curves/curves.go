// package curves maps gnark-crypto curve ids to the base field and tower
// parameters used by the circuit builder: the base prime, the irreducible
// polynomials of the degree 6 and 12 extensions, and the limb decomposition
// used for transcript absorption and serialization.
package curves

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/dragan2234/garaga/algebra"
)

const (
	// NLimbs is the number of limbs a base field element is split into for
	// transcript absorption and serialized constants.
	NLimbs = 4
	// LimbBits is the bit width of one limb.
	LimbBits = 96
)

// irreduciblePolys holds the low Hamming weight irreducible polynomials of
// the direct sextic and duodecic extensions, keyed by curve and degree.
// Coefficients are indexed by degree; negative entries are reduced mod p.
var irreduciblePolys = map[ecc.ID]map[int]map[int]int64{
	ecc.BN254: {
		6:  {0: 82, 3: -18, 6: 1},
		12: {0: 82, 6: -18, 12: 1},
	},
	ecc.BLS12_381: {
		6:  {0: 2, 3: -2, 6: 1},
		12: {0: 2, 6: -2, 12: 1},
	},
}

// BaseField returns the base field F_p of the curve. The curves supported by
// the builder are ecc.BN254 and ecc.BLS12_381.
func BaseField(id ecc.ID) (algebra.Field, error) {
	if id != ecc.BN254 && id != ecc.BLS12_381 {
		return algebra.Field{}, fmt.Errorf("unsupported curve: %v", id)
	}
	return algebra.NewField(id.BaseField()), nil
}

// IrreduciblePoly returns Φ(x), the irreducible polynomial defining the
// extension of the given degree over the curve's base field.
func IrreduciblePoly(id ecc.ID, degree int) (algebra.Polynomial, error) {
	byDegree, ok := irreduciblePolys[id]
	if !ok {
		return algebra.Polynomial{}, fmt.Errorf("unsupported curve: %v", id)
	}
	sparse, ok := byDegree[degree]
	if !ok {
		return algebra.Polynomial{}, fmt.Errorf("no irreducible polynomial of degree %d for curve %v", degree, id)
	}
	field, err := BaseField(id)
	if err != nil {
		return algebra.Polynomial{}, err
	}
	coeffs := make([]algebra.Felt, degree+1)
	for i := range coeffs {
		coeffs[i] = field.Zero()
	}
	for deg, c := range sparse {
		coeffs[deg] = field.NewElement(big.NewInt(c))
	}
	return algebra.NewPolynomial(field, coeffs), nil
}

// SplitLimbs decomposes v into NLimbs limbs of LimbBits bits each, least
// significant limb first.
func SplitLimbs(v *big.Int) [NLimbs]*big.Int {
	var limbs [NLimbs]*big.Int
	mask := new(big.Int).Lsh(big.NewInt(1), LimbBits)
	mask.Sub(mask, big.NewInt(1))
	rest := new(big.Int).Set(v)
	for i := 0; i < NLimbs; i++ {
		limbs[i] = new(big.Int).And(rest, mask)
		rest.Rsh(rest, LimbBits)
	}
	return limbs
}
