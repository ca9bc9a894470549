// package algebra provides prime field elements and dense polynomials over
// math/big, parametric in the field modulus so the same code serves the
// BN254 and BLS12-381 base fields.
package algebra

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
)

// ErrDivideByZero is returned when inverting zero or a non invertible element.
var ErrDivideByZero = errors.New("algebra: divide by zero")

// Field is a prime field context. The zero value is not usable; construct
// with NewField.
type Field struct {
	p *big.Int
}

// NewField creates a field context for the prime modulus p.
func NewField(p *big.Int) Field {
	return Field{p: new(big.Int).Set(p)}
}

// Modulus returns a copy of the field modulus.
func (f Field) Modulus() *big.Int {
	return new(big.Int).Set(f.p)
}

// NewElement reduces v into the field and returns it as a Felt.
func (f Field) NewElement(v *big.Int) Felt {
	r := new(big.Int).Mod(v, f.p)
	if r.Sign() < 0 {
		r.Add(r, f.p)
	}
	return Felt{v: r, p: f.p}
}

// NewElementFromUint64 returns v as a field element.
func (f Field) NewElementFromUint64(v uint64) Felt {
	return f.NewElement(new(big.Int).SetUint64(v))
}

// Zero returns the additive identity.
func (f Field) Zero() Felt {
	return Felt{v: new(big.Int), p: f.p}
}

// One returns the multiplicative identity.
func (f Field) One() Felt {
	return Felt{v: big.NewInt(1), p: f.p}
}

// RandomElement draws a uniform element from rng.
func (f Field) RandomElement(rng *rand.Rand) Felt {
	v := new(big.Int).Rand(rng, f.p)
	return Felt{v: v, p: f.p}
}

// Felt is an immutable residue modulo the field prime. Operations return new
// values and never mutate their receiver.
type Felt struct {
	v *big.Int
	p *big.Int
}

// BigInt returns a copy of the canonical representative in [0, p).
func (a Felt) BigInt() *big.Int {
	return new(big.Int).Set(a.v)
}

// Field returns the field context the element belongs to.
func (a Felt) Field() Field {
	return Field{p: a.p}
}

// Add returns a + b mod p.
func (a Felt) Add(b Felt) Felt {
	r := new(big.Int).Add(a.v, b.v)
	r.Mod(r, a.p)
	return Felt{v: r, p: a.p}
}

// Sub returns a - b mod p.
func (a Felt) Sub(b Felt) Felt {
	r := new(big.Int).Sub(a.v, b.v)
	r.Mod(r, a.p)
	if r.Sign() < 0 {
		r.Add(r, a.p)
	}
	return Felt{v: r, p: a.p}
}

// Mul returns a * b mod p.
func (a Felt) Mul(b Felt) Felt {
	r := new(big.Int).Mul(a.v, b.v)
	r.Mod(r, a.p)
	return Felt{v: r, p: a.p}
}

// Neg returns -a mod p.
func (a Felt) Neg() Felt {
	if a.v.Sign() == 0 {
		return a
	}
	r := new(big.Int).Sub(a.p, a.v)
	return Felt{v: r, p: a.p}
}

// Inverse returns a⁻¹ mod p, or ErrDivideByZero for the zero element.
func (a Felt) Inverse() (Felt, error) {
	if a.v.Sign() == 0 {
		return Felt{}, fmt.Errorf("inverting zero element: %w", ErrDivideByZero)
	}
	r := new(big.Int).ModInverse(a.v, a.p)
	if r == nil {
		return Felt{}, fmt.Errorf("element not invertible: %w", ErrDivideByZero)
	}
	return Felt{v: r, p: a.p}, nil
}

// Equal reports whether a and b are the same residue.
func (a Felt) Equal(b Felt) bool {
	return a.v.Cmp(b.v) == 0
}

// IsZero reports whether a is the additive identity.
func (a Felt) IsZero() bool {
	return a.v.Sign() == 0
}

// IsOne reports whether a is the multiplicative identity.
func (a Felt) IsOne() bool {
	return a.v.Cmp(big.NewInt(1)) == 0
}

// String returns the decimal representation of the residue.
func (a Felt) String() string {
	return a.v.String()
}
