package garaga

// Summary reports the builtin and transcript budget of one circuit.
type Summary struct {
	Circuit  string
	MulMod   int
	AddMod   int
	AssertEq int
	Poseidon int
	RLC      int
}

// Summarize counts the modular builtins, equality constraints, Poseidon
// permutations and Euclidean equations recorded so far. Circuits that never
// drew randomness report zero Poseidon permutations.
func (c *ExtensionFieldCircuit) Summarize() Summary {
	addCount, mulCount, assertEqCount := c.Segment.Summarize()
	poseidon := c.Transcript.PermutationsCount()
	if poseidon <= 1 {
		poseidon = 0
	}
	return Summary{
		Circuit:  c.Name,
		MulMod:   mulCount,
		AddMod:   addCount,
		AssertEq: assertEqCount,
		Poseidon: poseidon,
		RLC:      c.instructions[0].n() + c.instructions[1].n(),
	}
}
