package garaga

import (
	"errors"

	"github.com/dragan2234/garaga/algebra"
)

// Circuit construction errors. All of them are fatal: the transcript state
// cannot be rewound, so a failed circuit is discarded, not resumed.
var (
	ErrShapeMismatch      = errors.New("circuit: operand shape mismatch")
	ErrDegreeOverflow     = errors.New("circuit: polynomial degree exceeds precomputed z powers")
	ErrSparsityViolation  = errors.New("circuit: sparsity tag disagrees with value")
	ErrIdentityFailure    = errors.New("circuit: aggregated polynomial identity does not hold")
	ErrUnknownInstruction = errors.New("circuit: unknown accumulation instruction kind")

	// ErrDivideByZero is surfaced for inv(0) and for divisions whose hint
	// reports a non invertible denominator.
	ErrDivideByZero = algebra.ErrDivideByZero
)
