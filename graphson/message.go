package graphson

import "github.com/google/uuid"

// MimeV3 is the default content type negotiated with the server.
const MimeV3 = "application/vnd.gremlin-v3.0+json"

// Operation names understood by the server.
const (
	OpBytecode       = "bytecode"
	OpEval           = "eval"
	OpAuthentication = "authentication"
)

// ProcessorTraversal is the server-side processor handling bytecode ops.
const ProcessorTraversal = "traversal"

// Well-known argument keys.
const (
	ArgGremlin  = "gremlin"
	ArgAliases  = "aliases"
	ArgBindings = "bindings"
	ArgLanguage = "language"
	ArgSasl     = "sasl"
)

// Response status codes. Values are authoritative; anything >= 400 other than
// StatusAuthenticate is a terminal error for the addressed request.
const (
	StatusSuccess        = 200
	StatusNoContent      = 204
	StatusPartialContent = 206
	StatusAuthenticate   = 407
)

// RequestMessage is one framed request sent to the server.
type RequestMessage struct {
	RequestID uuid.UUID
	Op        string
	Processor string // empty means omitted on the wire
	Args      map[string]any
}

// ResponseStatus carries the status block of a response frame.
type ResponseStatus struct {
	Code       int
	Message    string
	Attributes map[string]any
}

// ResponseMessage is one decoded response frame. HasRequestID is false when the
// server could not echo a correlation id (decode failure on its side); such a
// frame cannot be attributed to any single pending request.
type ResponseMessage struct {
	RequestID    uuid.UUID
	HasRequestID bool
	Status       ResponseStatus
	Data         []any
	Meta         map[string]any
}
