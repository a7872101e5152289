package driver

import "github.com/matst80/gremlink/graphson"

// NewEvalRequest builds a script-evaluation request. Per protocol the
// processor stays unset for eval ops. Bindings are attached only when
// non-empty.
func NewEvalRequest(script string, bindings map[string]any, source string) *graphson.RequestMessage {
	args := map[string]any{
		graphson.ArgGremlin:  script,
		graphson.ArgLanguage: "gremlin-groovy",
		graphson.ArgAliases:  map[string]any{"g": source},
	}
	if len(bindings) > 0 {
		args[graphson.ArgBindings] = bindings
	}
	return &graphson.RequestMessage{Op: graphson.OpEval, Args: args}
}

// NewBytecodeRequest builds a bytecode-execution request for the traversal
// processor, aliasing the logical source "g" to the configured one.
func NewBytecodeRequest(program *graphson.Bytecode, source string) *graphson.RequestMessage {
	return &graphson.RequestMessage{
		Op:        graphson.OpBytecode,
		Processor: graphson.ProcessorTraversal,
		Args: map[string]any{
			graphson.ArgGremlin: program,
			graphson.ArgAliases: map[string]any{"g": source},
		},
	}
}
