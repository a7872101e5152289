package graphson

// Graph element types produced by the value decoder. Identifiers stay as
// whatever wire type the server used (int64, string, uuid) since graphs are
// free to pick their own id scheme.

type Vertex struct {
	ID         any
	Label      string
	Properties any
}

type Edge struct {
	ID         any
	Label      string
	InV        any
	InVLabel   string
	OutV       any
	OutVLabel  string
	Properties any
}

type VertexProperty struct {
	ID    any
	Label string
	Value any
}

type Property struct {
	Key   string
	Value any
}

type Path struct {
	Labels  []any
	Objects []any
}

// Traverser is a traversal result value with a bulk multiplier; a bulk of n
// stands for n identical results collapsed into one frame entry.
type Traverser struct {
	Value any
	Bulk  int64
}
