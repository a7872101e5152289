package graphson

// Bytecode is a serialized traversal program: an ordered list of source and
// step instructions, each an operator name followed by its arguments.
type Bytecode struct {
	SourceInstructions [][]any
	StepInstructions   [][]any
}

// NewBytecode returns an empty traversal program.
func NewBytecode() *Bytecode {
	return &Bytecode{}
}

// AddSource appends a traversal-source instruction (e.g. withStrategies).
func (b *Bytecode) AddSource(name string, args ...any) *Bytecode {
	b.SourceInstructions = append(b.SourceInstructions, instruction(name, args))
	return b
}

// AddStep appends a traversal step instruction (e.g. V, has, out).
func (b *Bytecode) AddStep(name string, args ...any) *Bytecode {
	b.StepInstructions = append(b.StepInstructions, instruction(name, args))
	return b
}

func instruction(name string, args []any) []any {
	ins := make([]any, 0, len(args)+1)
	ins = append(ins, name)
	return append(ins, args...)
}
