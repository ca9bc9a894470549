package algebra

import (
	"fmt"
)

// Polynomial is a dense polynomial over a single prime field, coefficients in
// increasing degree order. The zero polynomial has no coefficients.
type Polynomial struct {
	field  Field
	coeffs []Felt
}

// NewPolynomial builds a polynomial over field from coeffs, trimming trailing
// zero coefficients.
func NewPolynomial(field Field, coeffs []Felt) Polynomial {
	last := len(coeffs) - 1
	for last >= 0 && coeffs[last].IsZero() {
		last--
	}
	c := make([]Felt, last+1)
	copy(c, coeffs[:last+1])
	return Polynomial{field: field, coeffs: c}
}

// ZeroPolynomial returns the zero polynomial over field.
func ZeroPolynomial(field Field) Polynomial {
	return Polynomial{field: field}
}

// XPolynomial returns the monomial x over field.
func XPolynomial(field Field) Polynomial {
	return Polynomial{field: field, coeffs: []Felt{field.Zero(), field.One()}}
}

// Field returns the coefficient field.
func (p Polynomial) Field() Field {
	return p.field
}

// Degree returns the degree of p, with -1 for the zero polynomial.
func (p Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// IsZero reports whether p is the zero polynomial.
func (p Polynomial) IsZero() bool {
	return len(p.coeffs) == 0
}

// Coefficients returns a copy of the trimmed coefficient slice.
func (p Polynomial) Coefficients() []Felt {
	c := make([]Felt, len(p.coeffs))
	copy(c, p.coeffs)
	return c
}

// CoefficientsPadded returns the coefficients right padded with zeros to
// length n. Nothing is dropped: when p has more than n coefficients, all of
// them are returned.
func (p Polynomial) CoefficientsPadded(n int) []Felt {
	c := make([]Felt, 0, n)
	c = append(c, p.coeffs...)
	for len(c) < n {
		c = append(c, p.field.Zero())
	}
	return c
}

// Coefficient returns the coefficient of degree i, zero beyond the degree.
func (p Polynomial) Coefficient(i int) Felt {
	if i >= len(p.coeffs) {
		return p.field.Zero()
	}
	return p.coeffs[i]
}

// Add returns p + q.
func (p Polynomial) Add(q Polynomial) Polynomial {
	n := len(p.coeffs)
	if len(q.coeffs) > n {
		n = len(q.coeffs)
	}
	sum := make([]Felt, n)
	for i := 0; i < n; i++ {
		sum[i] = p.Coefficient(i).Add(q.Coefficient(i))
	}
	return NewPolynomial(p.fieldOf(q), sum)
}

// Sub returns p - q.
func (p Polynomial) Sub(q Polynomial) Polynomial {
	n := len(p.coeffs)
	if len(q.coeffs) > n {
		n = len(q.coeffs)
	}
	diff := make([]Felt, n)
	for i := 0; i < n; i++ {
		diff[i] = p.Coefficient(i).Sub(q.Coefficient(i))
	}
	return NewPolynomial(p.fieldOf(q), diff)
}

// Mul returns p * q by schoolbook convolution.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	field := p.fieldOf(q)
	if p.IsZero() || q.IsZero() {
		return ZeroPolynomial(field)
	}
	prod := make([]Felt, len(p.coeffs)+len(q.coeffs)-1)
	for i := range prod {
		prod[i] = field.Zero()
	}
	for i, a := range p.coeffs {
		for j, b := range q.coeffs {
			prod[i+j] = prod[i+j].Add(a.Mul(b))
		}
	}
	return NewPolynomial(field, prod)
}

// MulScalar returns c·p.
func (p Polynomial) MulScalar(c Felt) Polynomial {
	scaled := make([]Felt, len(p.coeffs))
	for i, a := range p.coeffs {
		scaled[i] = a.Mul(c)
	}
	return NewPolynomial(p.field, scaled)
}

// Eval evaluates p at x by Horner's rule.
func (p Polynomial) Eval(x Felt) Felt {
	acc := p.field.Zero()
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(p.coeffs[i])
	}
	return acc
}

// DivMod returns (q, r) with p = q·div + r and deg(r) < deg(div).
func (p Polynomial) DivMod(div Polynomial) (Polynomial, Polynomial, error) {
	if div.IsZero() {
		return Polynomial{}, Polynomial{}, fmt.Errorf("polynomial division: %w", ErrDivideByZero)
	}
	field := p.fieldOf(div)
	leadInv, err := div.coeffs[len(div.coeffs)-1].Inverse()
	if err != nil {
		return Polynomial{}, Polynomial{}, err
	}
	rem := p.Coefficients()
	if len(rem) < len(div.coeffs) {
		return ZeroPolynomial(field), NewPolynomial(field, rem), nil
	}
	quo := make([]Felt, len(rem)-len(div.coeffs)+1)
	for i := range quo {
		quo[i] = field.Zero()
	}
	for d := len(rem) - 1; d >= len(div.coeffs)-1; d-- {
		if rem[d].IsZero() {
			continue
		}
		shift := d - (len(div.coeffs) - 1)
		factor := rem[d].Mul(leadInv)
		quo[shift] = factor
		for j, c := range div.coeffs {
			rem[shift+j] = rem[shift+j].Sub(factor.Mul(c))
		}
	}
	return NewPolynomial(field, quo), NewPolynomial(field, rem), nil
}

// InverseMod returns p⁻¹ modulo m via the extended Euclidean algorithm.
// It errors with ErrDivideByZero when p and m are not coprime.
func (p Polynomial) InverseMod(m Polynomial) (Polynomial, error) {
	field := p.fieldOf(m)
	r0, r1 := m, p
	s0 := ZeroPolynomial(field)
	s1 := NewPolynomial(field, []Felt{field.One()})
	for !r1.IsZero() {
		q, r, err := r0.DivMod(r1)
		if err != nil {
			return Polynomial{}, err
		}
		r0, r1 = r1, r
		s0, s1 = s1, s0.Sub(q.Mul(s1))
	}
	if r0.Degree() != 0 {
		return Polynomial{}, fmt.Errorf("polynomial not invertible modulo divisor: %w", ErrDivideByZero)
	}
	gcdInv, err := r0.coeffs[0].Inverse()
	if err != nil {
		return Polynomial{}, err
	}
	inv := s0.MulScalar(gcdInv)
	_, inv, err = inv.DivMod(m)
	if err != nil {
		return Polynomial{}, err
	}
	return inv, nil
}

func (p Polynomial) fieldOf(q Polynomial) Field {
	if p.field.p != nil {
		return p.field
	}
	return q.field
}
