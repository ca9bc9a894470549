package garaga

import (
	"fmt"

	"github.com/dragan2234/garaga/algebra"
	"github.com/dragan2234/garaga/curves"
)

// getZAndNondeterministicQ runs the transcript part of finalization: absorb
// the inputs, absorb each instruction's committed remainder (or numerator for
// divisions) drawing one RLC coefficient after each, aggregate the quotients
// Q = Σ cᵢ·Qᵢ off-circuit, absorb them, and derive the evaluation point z.
func (c *ExtensionFieldCircuit) getZAndNondeterministicQ(d int, mock bool) (algebra.Felt, [2][]algebra.Felt, error) {
	var qs [2][]algebra.Felt

	if c.hashInput {
		c.Transcript.HashLimbsMulti(c.Segment.ValuesBySource(Input), nil)
	}

	doubleExtension := c.instructions[1].n() > 0
	accIndexes := []int{0}
	if doubleExtension {
		accIndexes = []int{0, 1}
	}

	for _, accIndex := range accIndexes {
		buf := c.instructions[accIndex]
		for i := range buf.instrs {
			ins := &buf.instrs[i]
			switch ins.kind {
			case KindMul:
				c.Transcript.HashLimbsMulti(feltsOf(ins.r), ins.rSparsity)
			case KindSquareTorus:
				c.Transcript.HashLimbsMulti(feltsOf(ins.r), nil)
			case KindDiv:
				c.Transcript.HashLimbsMulti(feltsOf(ins.pis[0]), nil)
			default:
				return algebra.Felt{}, qs, fmt.Errorf("%w: %d", ErrUnknownInstruction, ins.kind)
			}
			coeff := c.WriteNativeFelt(c.Field.NewElement(c.Transcript.RLCCoeff()))
			buf.rlcCoeffs = append(buf.rlcCoeffs, coeff)
		}

		q := algebra.ZeroPolynomial(c.Field)
		for i, coeff := range buf.rlcCoeffs {
			q = q.Add(buf.instrs[i].q.MulScalar(coeff.Felt))
		}
		qs[accIndex] = q.CoefficientsPadded((accIndex+1)*d - 1)
	}
	if !doubleExtension {
		qs[1] = []algebra.Felt{c.Field.Zero()}
	}

	if !mock {
		c.Transcript.HashLimbsMulti(qs[0], nil)
		if doubleExtension {
			c.Transcript.HashLimbsMulti(qs[1], nil)
		}
	}

	z := c.Field.NewElement(c.Transcript.ContinuableHash())
	return z, qs, nil
}

// updateLHSState folds one instruction into the left side of the level's
// accumulator: LHS += cᵢ·Π Pᵢⱼ(z), memoizing every factor evaluation and
// reusing the previous one when consecutive factors are the same cells
// (squaring).
func (c *ExtensionFieldCircuit) updateLHSState(s1 *Value, ins *accPolyInstruction, accIndex int) error {
	for i, sparsity := range ins.psSparsities {
		if sparsity == nil {
			continue
		}
		if len(sparsity) != len(ins.pis[i]) {
			return fmt.Errorf("%w: factor %d has %d coefficients with %d sparsity tags",
				ErrShapeMismatch, i, len(ins.pis[i]), len(sparsity))
		}
		for j, tag := range sparsity {
			if tag == 0 && !ins.pis[i][j].Felt.IsZero() {
				return fmt.Errorf("%w: factor %d tag 0 at position %d", ErrSparsityViolation, i, j)
			}
			if tag == 2 && !ins.pis[i][j].Felt.IsOne() {
				return fmt.Errorf("%w: factor %d tag 2 at position %d", ErrSparsityViolation, i, j)
			}
		}
	}

	sparsityAt := func(i int) []int {
		if ins.psSparsities == nil {
			return nil
		}
		return ins.psSparsities[i]
	}

	lhs, err := c.EvalPolyInPrecomputedZ(ins.pis[0], sparsityAt(0))
	if err != nil {
		return err
	}
	current := lhs
	evals := []*Value{lhs}
	for i := 1; i < len(ins.pis); i++ {
		if !sameCells(ins.pis[i-1], ins.pis[i]) {
			current, err = c.EvalPolyInPrecomputedZ(ins.pis[i], sparsityAt(i))
			if err != nil {
				return err
			}
		}
		evals = append(evals, current)
		lhs = c.Mul(lhs, current)
	}
	buf := c.instructions[accIndex]
	buf.pisOfZ = append(buf.pisOfZ, evals)

	c.acc[accIndex].lhs = c.Add(c.acc[accIndex].lhs, c.Mul(s1, lhs))
	return nil
}

// updateRHSState folds instruction index i into the right side of the
// level's accumulator. When the next instruction's first factor is the very
// same committed remainder, its evaluation is reused directly and the
// coefficient-wise aggregation is skipped.
func (c *ExtensionFieldCircuit) updateRHSState(i, accIndex int) error {
	buf := c.instructions[accIndex]
	ins := &buf.instrs[i]
	s1 := buf.rlcCoeffs[i]
	acc := &c.acc[accIndex]

	if ins.kind != KindSquareTorus && i+1 < buf.n() {
		if sameCells(buf.instrs[i+1].pis[0], ins.r) {
			acc.rEvaluated = c.Add(acc.rEvaluated, c.Mul(s1, buf.pisOfZ[i+1][0]))
			return nil
		}
	}

	if ins.rSparsity != nil {
		if ins.kind != KindSquareTorus {
			for k, tag := range ins.rSparsity {
				if tag == 0 && !ins.r[k].Felt.IsZero() {
					return fmt.Errorf("%w: remainder tag 0 at position %d", ErrSparsityViolation, k)
				}
			}
		}
		for k := 0; k < len(acc.r) && k < len(ins.r); k++ {
			switch ins.rSparsity[k] {
			case 1:
				acc.r[k] = c.Add(acc.r[k], c.Mul(s1, ins.r[k]))
			case 2:
				acc.r[k] = c.Add(acc.r[k], s1)
			}
		}
		return nil
	}

	for k := 0; k < len(acc.r) && k < len(ins.r); k++ {
		acc.r[k] = c.Add(acc.r[k], c.Mul(s1, ins.r[k]))
	}
	return nil
}

// FinalizeCircuit closes the circuit: it derives the RLC coefficients and
// the evaluation point z from the transcript, commits the aggregated
// quotient, replays every deferred instruction at z, and asserts the single
// aggregated identity LHS = Q(z)·Φ(z) + R(z) + R_evaluated per active tower
// level. Pass d = 0 to use the circuit's extension degree. In mock mode the
// powers of z are witnessed and the final assertion is skipped.
func (c *ExtensionFieldCircuit) FinalizeCircuit(d int, mock bool) error {
	if c.finalized {
		return fmt.Errorf("circuit %q already finalized", c.Name)
	}
	if d == 0 {
		d = c.ExtensionDegree
	}

	z, qs, err := c.getZAndNondeterministicQ(d, mock)
	if err != nil {
		return err
	}

	computeZUpTo := len(qs[0])
	if len(qs[1]) > computeZUpTo {
		computeZUpTo = len(qs[1])
	}
	computeZUpTo--
	if computeZUpTo < d {
		computeZUpTo = d
	}

	doubleExtension := c.instructions[1].n() > 0
	var qCells [2][]*Value
	qCells[0], err = c.WriteElements(qs[0], Commit, nil)
	if err != nil {
		return err
	}
	accIndexes := []int{0}
	if doubleExtension {
		qCells[1], err = c.WriteElements(qs[1], Commit, nil)
		if err != nil {
			return err
		}
		if computeZUpTo < 2*d {
			computeZUpTo = 2 * d
		}
		accIndexes = []int{0, 1}
	}

	c.CreatePowersOfZ(z, mock, computeZUpTo)

	for _, accIndex := range accIndexes {
		buf := c.instructions[accIndex]
		for i := range buf.instrs {
			if err := c.updateLHSState(buf.rlcCoeffs[i], &buf.instrs[i], accIndex); err != nil {
				return err
			}
		}
		for i := range buf.instrs {
			if err := c.updateRHSState(i, accIndex); err != nil {
				return err
			}
		}

		if mock {
			continue
		}

		qOfZ, err := c.EvalPolyInPrecomputedZ(qCells[accIndex], nil)
		if err != nil {
			return err
		}

		phi, err := curves.IrreduciblePoly(c.CurveID, (accIndex+1)*d)
		if err != nil {
			return err
		}
		pCells, pSparsity := c.WriteSparseElements(phi.Coefficients(), Constant)
		pOfZ := pCells[0]
		sparseIndex := 1
		for i := 1; i < len(pSparsity); i++ {
			if pSparsity[i] == 1 {
				pOfZ = c.Add(pOfZ, c.Mul(pCells[sparseIndex], c.zPowers[i-1]))
				sparseIndex++
			}
		}

		zero := c.SetOrGetConstant(c.Field.Zero())
		rCoeffs := make([]*Value, len(c.acc[accIndex].r))
		for k, cell := range c.acc[accIndex].r {
			if cell == nil {
				cell = zero
			}
			rCoeffs[k] = cell
		}
		rOfZ, err := c.EvalPolyInPrecomputedZ(rCoeffs, nil)
		if err != nil {
			return err
		}

		lhs := c.acc[accIndex].lhs
		if lhs == nil {
			lhs = zero
		}
		rEvaluated := c.acc[accIndex].rEvaluated
		if rEvaluated == nil {
			rEvaluated = zero
		}
		rhs := c.Add(c.Mul(qOfZ, pOfZ), c.Add(rOfZ, rEvaluated))
		if !lhs.Felt.Equal(rhs.Felt) {
			return fmt.Errorf("%w: level %d: %s != %s", ErrIdentityFailure, accIndex, lhs.Felt, rhs.Felt)
		}
		c.SubAndAssert(lhs, rhs, zero)
	}

	c.finalized = true
	c.log.Debug().
		Int("segment", c.Segment.Len()).
		Int("poseidon", c.Transcript.PermutationsCount()).
		Bool("mock", mock).
		Msg("finalized circuit")
	return nil
}

// feltsOf extracts the felts behind one cell slice.
func feltsOf(cells []*Value) []algebra.Felt {
	out := make([]algebra.Felt, len(cells))
	for i, cell := range cells {
		out[i] = cell.Felt
	}
	return out
}
