package garaga

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/dragan2234/garaga/algebra"
	"github.com/dragan2234/garaga/hints"
	"github.com/dragan2234/garaga/transcript"
)

// InstructionKind tags one deferred extension field operation.
type InstructionKind uint8

const (
	KindMul InstructionKind = iota
	KindDiv
	KindSquareTorus
)

var instructionKindNames = [...]string{"MUL", "DIV", "SQUARE_TORUS"}

func (k InstructionKind) String() string {
	if int(k) < len(instructionKindNames) {
		return instructionKindNames[k]
	}
	return "UNKNOWN"
}

// accPolyInstruction is one deferred identity Π Pᵢ = Q·Φ + R awaiting the
// evaluation point. R cells double as the committed remainder handle: the
// finalizer detects reuse of the same cells as the next instruction's first
// factor by pointer identity, never by value.
type accPolyInstruction struct {
	kind         InstructionKind
	pis          [][]*Value
	q            algebra.Polynomial
	r            []*Value
	psSparsities [][]int
	rSparsity    []int
}

// accPolyInstructions buffers the deferred instructions of one tower level
// together with the finalization state attached to them.
type accPolyInstructions struct {
	instrs    []accPolyInstruction
	rlcCoeffs []*Value
	pisOfZ    [][]*Value
}

func (b *accPolyInstructions) append(kind InstructionKind, pis [][]*Value, q algebra.Polynomial,
	r []*Value, psSparsities [][]int, rSparsity []int) error {
	if kind != KindMul && len(pis) != 2 {
		return fmt.Errorf("%w: %s instruction with %d factors", ErrShapeMismatch, kind, len(pis))
	}
	b.instrs = append(b.instrs, accPolyInstruction{
		kind:         kind,
		pis:          pis,
		q:            q,
		r:            r,
		psSparsities: psSparsities,
		rSparsity:    rSparsity,
	})
	return nil
}

func (b *accPolyInstructions) n() int {
	return len(b.instrs)
}

// accumulator is the running state of one tower level's aggregated identity
// Σ cᵢ·Π Pᵢⱼ(z) = Σ cᵢ·(Qᵢ(z)·Φ(z) + Rᵢ(z)). lhs holds the left side, r the
// coefficient-wise aggregation of the remainders, rEvaluated the remainders
// whose evaluation was already available as another instruction's factor.
// Nil entries are the neutral element.
type accumulator struct {
	lhs        *Value
	r          []*Value
	rEvaluated *Value
}

// OpsCount tracks the high level operations recorded by a circuit. It is not
// part of the Summary returned by Summarize.
type OpsCount struct {
	ExtfSquare   int
	ExtfMulDense int
}

// ExtensionFieldCircuit builds circuits whose multiplications and divisions
// in the degree d (and 2d) extension of the base field are deferred and
// proven by a single Schwartz-Zippel identity test at finalization.
type ExtensionFieldCircuit struct {
	*ModuloCircuit

	ExtensionDegree int
	Transcript      *transcript.Transcript
	OpsCount        OpsCount

	hashInput    bool
	zPowers      []*Value
	acc          [2]accumulator
	instructions [2]*accPolyInstructions
	finalized    bool
}

type config struct {
	initHash  *big.Int
	hashInput bool
}

// Option configures the optional transcript knobs of a circuit.
type Option func(*config)

// WithInitHash seeds the transcript with h instead of the circuit name.
func WithInitHash(h *big.Int) Option {
	return func(c *config) { c.initHash = h }
}

// WithoutInputHashing skips the absorption of INPUT cells at finalization,
// for circuits whose inputs are bound by an outer transcript.
func WithoutInputHashing() Option {
	return func(c *config) { c.hashInput = false }
}

// NewExtensionFieldCircuit creates a circuit over the base field of the
// curve for a tower of the given extension degree.
func NewExtensionFieldCircuit(name string, id ecc.ID, extensionDegree int, opts ...Option) (*ExtensionFieldCircuit, error) {
	mod, err := NewModuloCircuit(name, id)
	if err != nil {
		return nil, err
	}
	cfg := config{hashInput: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.initHash == nil {
		cfg.initHash = transcript.InitHashFromName(name)
	}
	c := &ExtensionFieldCircuit{
		ModuloCircuit:   mod,
		ExtensionDegree: extensionDegree,
		Transcript:      transcript.New(cfg.initHash),
		hashInput:       cfg.hashInput,
		acc: [2]accumulator{
			{r: make([]*Value, extensionDegree)},
			{r: make([]*Value, extensionDegree*2)},
		},
		instructions: [2]*accPolyInstructions{{}, {}},
	}
	c.log.Debug().Int("extensionDegree", extensionDegree).Msg("created extension field circuit")
	return c, nil
}

// CreatePowersOfZ writes z as a native felt and emits the multiplication
// chain producing [z, z², …, z^maxDegree], kept on the circuit for the
// sparse evaluations. In mock mode the powers are witnessed instead of
// recomputed, for testing the evaluator without a transcript.
func (c *ExtensionFieldCircuit) CreatePowersOfZ(z algebra.Felt, mock bool, maxDegree int) []*Value {
	if maxDegree <= 0 {
		maxDegree = c.ExtensionDegree
	}
	powers := []*Value{c.WriteNativeFelt(z)}
	if !mock {
		for i := 2; i <= maxDegree; i++ {
			powers = append(powers, c.Mul(powers[len(powers)-1], powers[0]))
		}
	} else {
		cur := z
		for i := 2; i <= maxDegree; i++ {
			cur = cur.Mul(z)
			powers = append(powers, c.WriteWitness(cur))
		}
	}
	c.zPowers = powers
	return powers
}

// ZPowers returns the precomputed powers of z.
func (c *ExtensionFieldCircuit) ZPowers() []*Value {
	return c.zPowers
}

// EvalPolyInPrecomputedZ evaluates X(z) at the precomputed powers of z. A
// sparsity vector skips zero coefficients (tag 0) and replaces terms whose
// coefficient is one (tag 2) by the bare power of z.
func (c *ExtensionFieldCircuit) EvalPolyInPrecomputedZ(x []*Value, sparsity []int) (*Value, error) {
	if len(x)-1 > len(c.zPowers) {
		return nil, fmt.Errorf("%w: degree %d with %d powers of z", ErrDegreeOverflow, len(x)-1, len(c.zPowers))
	}
	if sparsity == nil {
		return c.EvalPoly(x, c.zPowers), nil
	}
	if len(sparsity) != len(x) {
		return nil, fmt.Errorf("%w: %d coefficients with %d sparsity tags", ErrShapeMismatch, len(x), len(sparsity))
	}

	first := -1
	for i, s := range sparsity {
		if s != 0 {
			first = i
			break
		}
	}
	if first == -1 {
		return c.SetOrGetConstant(c.Field.Zero()), nil
	}
	var acc *Value
	switch {
	case first == 0:
		acc = x[0]
	case sparsity[first] == 2:
		acc = c.zPowers[first-1]
	default:
		acc = c.Mul(x[first], c.zPowers[first-1])
	}
	for i := first + 1; i < len(x); i++ {
		switch sparsity[i] {
		case 1:
			acc = c.Add(acc, c.Mul(x[i], c.zPowers[i-1]))
		case 2:
			acc = c.Add(acc, c.zPowers[i-1])
		}
	}
	return acc, nil
}

// ExtfAdd adds two extension field elements coefficient-wise.
func (c *ExtensionFieldCircuit) ExtfAdd(x, y []*Value) ([]*Value, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: len(X)=%d len(Y)=%d", ErrShapeMismatch, len(x), len(y))
	}
	out := make([]*Value, len(x))
	for i := range x {
		out[i] = c.Add(x[i], y[i])
	}
	return out, nil
}

// ExtfSub subtracts two extension field elements coefficient-wise.
func (c *ExtensionFieldCircuit) ExtfSub(x, y []*Value) ([]*Value, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: len(X)=%d len(Y)=%d", ErrShapeMismatch, len(x), len(y))
	}
	out := make([]*Value, len(x))
	for i := range x {
		out[i] = c.Sub(x[i], y[i])
	}
	return out, nil
}

// ExtfNeg negates an extension field element coefficient-wise.
func (c *ExtensionFieldCircuit) ExtfNeg(x []*Value) []*Value {
	out := make([]*Value, len(x))
	for i := range x {
		out[i] = c.Neg(x[i])
	}
	return out
}

// ExtfScalarMul multiplies every coefficient by the scalar cell s.
func (c *ExtensionFieldCircuit) ExtfScalarMul(x []*Value, s *Value) []*Value {
	out := make([]*Value, len(x))
	for i := range x {
		out[i] = c.Mul(x[i], s)
	}
	return out
}

// ExtfMul multiplies the factors Ps in the degree d extension. The remainder
// R = Π Pᵢ mod Φ is computed off-circuit, committed, and the identity is
// deferred to finalization. Returns the committed R.
func (c *ExtensionFieldCircuit) ExtfMul(ps [][]*Value, d int, psSparsities [][]int,
	rSparsity []int, accIndex int) ([]*Value, error) {
	if d <= 2 {
		return nil, fmt.Errorf("extension degree %d <= 2: use Mul or a quadratic square instead", d)
	}
	if psSparsities != nil && len(psSparsities) != len(ps) {
		return nil, fmt.Errorf("%w: %d factors with %d sparsity vectors", ErrShapeMismatch, len(ps), len(psSparsities))
	}

	q, r, err := hints.ExtFMulDivmod(valuesOf(ps), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	rCells, err := c.WriteElements(r, Commit, rSparsity)
	if err != nil {
		return nil, err
	}

	anySparse := false
	for _, s := range psSparsities {
		if s != nil {
			anySparse = true
			break
		}
	}
	if !anySparse || rSparsity == nil {
		c.OpsCount.ExtfMulDense++
	}

	err = c.instructions[accIndex].append(KindMul, ps,
		algebra.NewPolynomial(c.Field, q), rCells, psSparsities, rSparsity)
	if err != nil {
		return nil, err
	}
	return rCells, nil
}

// ExtfDiv divides X by Y in the degree d extension. The quotient W = X/Y is
// committed and the deferred identity proves W·Y ≡ X (mod Φ). Returns the
// committed W.
func (c *ExtensionFieldCircuit) ExtfDiv(x, y []*Value, d int, accIndex int) ([]*Value, error) {
	w, err := hints.ExtFDiv(feltsOf(x), feltsOf(y), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	wCells, err := c.WriteElements(w, Commit, nil)
	if err != nil {
		return nil, err
	}
	q, _, err := hints.ExtFMulDivmod(valuesOf([][]*Value{wCells, y}), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	err = c.instructions[accIndex].append(KindDiv, [][]*Value{wCells, y},
		algebra.NewPolynomial(c.Field, q), x, nil, nil)
	if err != nil {
		return nil, err
	}
	return wCells, nil
}

// ExtfInv inverts Y in the degree d extension: a division of one by Y whose
// remainder is supplied symbolically through its sparsity, so no cell is
// written for the zero coordinates.
func (c *ExtensionFieldCircuit) ExtfInv(y []*Value, d int, accIndex int) ([]*Value, error) {
	one := make([]*Value, d)
	oneFelts := make([]algebra.Felt, d)
	one[0] = &Value{Offset: -1, Felt: c.Field.One()}
	oneFelts[0] = c.Field.One()
	for i := 1; i < d; i++ {
		one[i] = &Value{Offset: -1, Felt: c.Field.Zero()}
		oneFelts[i] = c.Field.Zero()
	}

	w, err := hints.ExtFDiv(oneFelts, feltsOf(y), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	wCells, err := c.WriteElements(w, Commit, nil)
	if err != nil {
		return nil, err
	}
	q, _, err := hints.ExtFMulDivmod(valuesOf([][]*Value{wCells, y}), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	rSparsity := make([]int, d)
	rSparsity[0] = 2
	err = c.instructions[accIndex].append(KindDiv, [][]*Value{wCells, y},
		algebra.NewPolynomial(c.Field, q), one, nil, rSparsity)
	if err != nil {
		return nil, err
	}
	return wCells, nil
}

// ExtfSquareTorus squares X on the algebraic torus: the compressed result
// SQ = (X + v/X)/2 is committed and the deferred identity proves
// (2·SQ - X)·X ≡ v (mod Φ) with v = x, expressed through the remainder
// sparsity alone.
func (c *ExtensionFieldCircuit) ExtfSquareTorus(x []*Value, d int, accIndex int) ([]*Value, error) {
	sq, err := hints.TorusSquare(feltsOf(x), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	sqCells, err := c.WriteElements(sq, Commit, nil)
	if err != nil {
		return nil, err
	}

	two := c.SetOrGetConstant(c.Field.NewElementFromUint64(2))
	twoSQMinusX, err := c.ExtfSub(c.ExtfScalarMul(sqCells, two), x)
	if err != nil {
		return nil, err
	}

	q, _, err := hints.ExtFMulDivmod(valuesOf([][]*Value{twoSQMinusX, x}), c.CurveID, d)
	if err != nil {
		return nil, err
	}
	rSparsity := make([]int, d)
	rSparsity[1] = 2
	err = c.instructions[accIndex].append(KindSquareTorus, [][]*Value{twoSQMinusX, x},
		algebra.NewPolynomial(c.Field, q), sqCells, nil, rSparsity)
	if err != nil {
		return nil, err
	}
	c.OpsCount.ExtfSquare++
	return sqCells, nil
}

// valuesOf extracts the felts behind cell slices.
func valuesOf(cells [][]*Value) [][]algebra.Felt {
	out := make([][]algebra.Felt, len(cells))
	for i, row := range cells {
		felts := make([]algebra.Felt, len(row))
		for j, cell := range row {
			felts[j] = cell.Felt
		}
		out[i] = felts
	}
	return out
}

// sameCells reports whether two cell slices are the same committed handles,
// element by element. Numerically equal but distinct cells do not match.
func sameCells(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
