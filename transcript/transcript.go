// package transcript implements the Fiat-Shamir transcript of the circuit
// builder: a width 3 Poseidon sponge over the BN254 scalar field that absorbs
// limb decompositions of base field elements and exposes a continuable hash
// and fresh random linear combination coefficients.
//
// The permutation itself is pluggable; the default is the gnark-crypto
// poseidon2 permutation.
package transcript

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"

	"github.com/dragan2234/garaga/algebra"
	"github.com/dragan2234/garaga/curves"
)

const (
	width         = 3
	fullRounds    = 8
	partialRounds = 56

	// poseidonBuiltinSize and poseidonOutputS1Index describe the memory
	// layout of one Poseidon builtin instance in the target VM: six felts
	// per instance, with the second output at index 4.
	poseidonBuiltinSize   = 6
	poseidonOutputS1Index = 4
)

// Permutation is the absorbing contract with the Poseidon primitive: an in
// place permutation of a width 3 state.
type Permutation interface {
	Permutation(state []fr.Element) error
}

// Transcript is a running Poseidon sponge. One field value is absorbed as two
// packed limb pairs added into s0 and s1 followed by one permutation.
type Transcript struct {
	s0, s1, s2 fr.Element
	perm       Permutation

	permutationsCount int
	ptrIndexes        []int
}

// New creates a transcript seeded with initHash, using the default poseidon2
// permutation.
func New(initHash *big.Int) *Transcript {
	return NewWithPermutation(initHash, poseidon2.NewPermutation(width, fullRounds, partialRounds))
}

// NewWithPermutation creates a transcript seeded with initHash over a caller
// provided permutation.
func NewWithPermutation(initHash *big.Int, perm Permutation) *Transcript {
	t := &Transcript{perm: perm}
	t.s0.SetBigInt(new(big.Int).Mod(initHash, fr.Modulus()))
	t.s1.SetZero()
	t.s2.SetOne()
	t.permute()
	return t
}

// InitHashFromName derives a transcript seed from a circuit name, reading its
// bytes as a big-endian integer.
func InitHashFromName(name string) *big.Int {
	return new(big.Int).SetBytes([]byte(name))
}

func (t *Transcript) permute() {
	state := []fr.Element{t.s0, t.s1, t.s2}
	if err := t.perm.Permutation(state); err != nil {
		// The poseidon2 permutation only errors on a wrong state width,
		// which the transcript never produces.
		panic(err)
	}
	t.s0, t.s1, t.s2 = state[0], state[1], state[2]
	t.permutationsCount++
}

// HashElement absorbs one base field element: its four 96-bit limbs are
// packed into two field elements added into s0 and s1, then the state is
// permuted once.
func (t *Transcript) HashElement(x algebra.Felt) {
	limbs := curves.SplitLimbs(x.BigInt())
	base := new(big.Int).Lsh(big.NewInt(1), curves.LimbBits)

	lo := new(big.Int).Mul(limbs[1], base)
	lo.Add(lo, limbs[0])
	hi := new(big.Int).Mul(limbs[3], base)
	hi.Add(hi, limbs[2])

	var addLo, addHi fr.Element
	addLo.SetBigInt(lo)
	addHi.SetBigInt(hi)
	t.s0.Add(&t.s0, &addLo)
	t.s1.Add(&t.s1, &addHi)
	t.permute()
}

// HashLimbsMulti absorbs each value in order. When a sparsity vector is
// given, values whose tag is 0 are skipped entirely.
func (t *Transcript) HashLimbsMulti(values []algebra.Felt, sparsity []int) {
	for i, v := range values {
		if sparsity != nil && sparsity[i] == 0 {
			continue
		}
		t.HashElement(v)
	}
}

// ContinuableHash returns the current state digest s0.
func (t *Transcript) ContinuableHash() *big.Int {
	var v big.Int
	t.s0.BigInt(&v)
	return &v
}

// RLCCoeff returns a fresh random linear combination coefficient, s1 of the
// current state, and records the permutation it was drawn from for the
// back-ends.
func (t *Transcript) RLCCoeff() *big.Int {
	t.ptrIndexes = append(t.ptrIndexes, t.permutationsCount-1)
	var v big.Int
	t.s1.BigInt(&v)
	return &v
}

// PermutationsCount returns the number of permutation rounds executed.
func (t *Transcript) PermutationsCount() int {
	return t.permutationsCount
}

// PoseidonPtrIndexes returns, for each drawn RLC coefficient, the target VM
// memory offset of the hash output it came from.
func (t *Transcript) PoseidonPtrIndexes() []int {
	out := make([]int, len(t.ptrIndexes))
	for i, idx := range t.ptrIndexes {
		out[i] = poseidonBuiltinSize*idx + poseidonOutputS1Index
	}
	return out
}

// RLCCount returns the number of RLC coefficients drawn so far.
func (t *Transcript) RLCCount() int {
	return len(t.ptrIndexes)
}
