package garaga

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"

	"github.com/dragan2234/garaga/curves"
)

// CompiledCircuit is the back-end facing form of a finalized circuit: the
// constant pool as limbs, the builtin instruction triples and the per-circuit
// scalars, all offsets and lengths expressed in limb units.
type CompiledCircuit struct {
	Name    string
	CurveID ecc.ID

	Constants     [][]*big.Int
	AddOffsets    [][3]int
	MulOffsets    [][3]int
	OutputOffsets []int
	// PoseidonIndexes holds, per Euclidean equation, the target VM offset of
	// the hash output its RLC coefficient was drawn from.
	PoseidonIndexes []int

	InputLen       int
	CommitmentsLen int
	WitnessesLen   int
	OutputLen      int

	ContinuousOutput    bool
	AddModN             int
	MulModN             int
	NAssertEq           int
	NEuclideanEquations int
}

// Compile reorders the value segment into its non interactive form and
// extracts everything the back-ends serialize. The reordering is done on a
// copy of the segment; the circuit itself is left untouched.
func (c *ExtensionFieldCircuit) Compile() (*CompiledCircuit, error) {
	segment, offsetMap := c.Segment.NonInteractiveTransform()

	cc := &CompiledCircuit{
		Name:            c.Name,
		CurveID:         c.CurveID,
		PoseidonIndexes: c.Transcript.PoseidonPtrIndexes(),
		InputLen:        segment.CountBySource(Input) * curves.NLimbs,
		CommitmentsLen:  segment.CountBySource(Commit) * curves.NLimbs,
		WitnessesLen:    segment.CountBySource(Witness) * curves.NLimbs,
		OutputLen:       len(c.output) * curves.NLimbs,
	}
	cc.NEuclideanEquations = len(cc.PoseidonIndexes)

	for _, cell := range segment.Cells() {
		switch cell.Source {
		case Constant:
			limbs := curves.SplitLimbs(cell.Felt.BigInt())
			cc.Constants = append(cc.Constants, limbs[:])
		case Builtin:
			triple := [3]int{
				cell.Instr.Left * curves.NLimbs,
				cell.Instr.Right * curves.NLimbs,
				cell.Instr.Result * curves.NLimbs,
			}
			if cell.Instr.Op == OpAdd {
				cc.AddOffsets = append(cc.AddOffsets, triple)
			} else {
				cc.MulOffsets = append(cc.MulOffsets, triple)
			}
		}
	}
	for _, instr := range segment.AssertEqInstructions() {
		cc.AddOffsets = append(cc.AddOffsets, [3]int{
			instr.Left * curves.NLimbs,
			instr.Right * curves.NLimbs,
			instr.Result * curves.NLimbs,
		})
	}
	for _, out := range c.output {
		newOffset, ok := offsetMap[out.Offset]
		if !ok {
			return nil, fmt.Errorf("output cell at offset %d not found in segment", out.Offset)
		}
		cc.OutputOffsets = append(cc.OutputOffsets, newOffset*curves.NLimbs)
	}
	// continuity is judged on the reordered segment the back-ends see
	cc.ContinuousOutput = true
	for i := 1; i < len(cc.OutputOffsets); i++ {
		if cc.OutputOffsets[i] != cc.OutputOffsets[i-1]+curves.NLimbs {
			cc.ContinuousOutput = false
			break
		}
	}
	cc.AddModN = len(cc.AddOffsets)
	cc.MulModN = len(cc.MulOffsets)
	cc.NAssertEq = len(segment.AssertEqInstructions())

	c.log.Debug().
		Int("addModN", cc.AddModN).
		Int("mulModN", cc.MulModN).
		Int("constants", len(cc.Constants)).
		Msg("compiled circuit")
	return cc, nil
}

// SaveCompiledCircuit serializes a compiled circuit to file.
func SaveCompiledCircuit(cc *CompiledCircuit, filepath string) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(cc); err != nil {
		return fmt.Errorf("error encoding compiled circuit: %v", err)
	}
	if err := os.WriteFile(filepath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing compiled circuit to file: %v", err)
	}
	return nil
}

// LoadCompiledCircuit deserializes a compiled circuit from file.
func LoadCompiledCircuit(filepath string) (*CompiledCircuit, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading compiled circuit file: %v", err)
	}
	var cc CompiledCircuit
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cc); err != nil {
		return nil, fmt.Errorf("error decoding compiled circuit: %v", err)
	}
	return &cc, nil
}
