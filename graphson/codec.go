package graphson

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Codec encodes request messages into mime-prefixed frames and decodes
// response frames into typed values. It is stateless and safe for concurrent
// use.
type Codec struct {
	Mime string
}

// NewCodec returns a codec for the given content type, defaulting to MimeV3.
func NewCodec(mime string) *Codec {
	if mime == "" {
		mime = MimeV3
	}
	return &Codec{Mime: mime}
}

// EncodeRequest serializes m and prefixes the frame with the one-byte length
// of the content-type identifier followed by the identifier itself.
func (c *Codec) EncodeRequest(m *RequestMessage) ([]byte, error) {
	if len(c.Mime) > 255 {
		return nil, errors.Errorf("content type too long: %d bytes", len(c.Mime))
	}
	args, err := c.adaptArgs(m.Args)
	if err != nil {
		return nil, errors.Wrap(err, "adapt request args")
	}
	body := map[string]any{
		"requestId": typed("g:UUID", m.RequestID.String()),
		"op":        m.Op,
		"args":      args,
	}
	if m.Processor != "" {
		body["processor"] = m.Processor
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}
	frame := make([]byte, 0, 1+len(c.Mime)+len(payload))
	frame = append(frame, byte(len(c.Mime)))
	frame = append(frame, c.Mime...)
	return append(frame, payload...), nil
}

// adaptArgs converts the top level of a request argument map. The map itself
// stays a plain object, and the bindings entry is special-cased: its contents
// are adapted individually without the usual g:Map wrapping so the server sees
// a flat name->value object.
func (c *Codec) adaptArgs(args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if k == ArgBindings {
			bindings, ok := v.(map[string]any)
			if !ok {
				return nil, errors.Errorf("bindings must be a map, got %T", v)
			}
			flat := make(map[string]any, len(bindings))
			for name, bv := range bindings {
				av, err := adaptValue(bv)
				if err != nil {
					return nil, errors.Wrapf(err, "binding %q", name)
				}
				flat[name] = av
			}
			out[k] = flat
			continue
		}
		av, err := adaptValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "arg %q", k)
		}
		out[k] = av
	}
	return out, nil
}

func typed(t string, v any) map[string]any {
	return map[string]any{"@type": t, "@value": v}
}

// adaptValue converts a native value (including nested containers) into its
// wire type-tagged representation.
func adaptValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case bool:
		return t, nil
	case int8:
		return typed("g:Int32", int32(t)), nil
	case int16:
		return typed("g:Int32", int32(t)), nil
	case int32:
		return typed("g:Int32", t), nil
	case int:
		if t >= -1<<31 && t < 1<<31 {
			return typed("g:Int32", int32(t)), nil
		}
		return typed("g:Int64", int64(t)), nil
	case int64:
		return typed("g:Int64", t), nil
	case uint32:
		return typed("g:Int64", int64(t)), nil
	case uint64:
		return typed("g:Int64", int64(t)), nil
	case float32:
		return typed("g:Double", float64(t)), nil
	case float64:
		return typed("g:Double", t), nil
	case uuid.UUID:
		return typed("g:UUID", t.String()), nil
	case time.Time:
		return typed("g:Date", t.UnixMilli()), nil
	case *Bytecode:
		return adaptBytecode(t)
	case Bytecode:
		return adaptBytecode(&t)
	case []any:
		list, err := adaptSlice(t)
		if err != nil {
			return nil, err
		}
		return typed("g:List", list), nil
	case map[string]any:
		flat := make([]any, 0, len(t)*2)
		for k, mv := range t {
			av, err := adaptValue(mv)
			if err != nil {
				return nil, err
			}
			flat = append(flat, k, av)
		}
		return typed("g:Map", flat), nil
	default:
		return nil, errors.Errorf("unsupported value type %T", v)
	}
}

func adaptSlice(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, v := range in {
		av, err := adaptValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = av
	}
	return out, nil
}

func adaptBytecode(b *Bytecode) (any, error) {
	value := map[string]any{}
	if len(b.SourceInstructions) > 0 {
		src, err := adaptInstructions(b.SourceInstructions)
		if err != nil {
			return nil, err
		}
		value["source"] = src
	}
	if len(b.StepInstructions) > 0 {
		steps, err := adaptInstructions(b.StepInstructions)
		if err != nil {
			return nil, err
		}
		value["step"] = steps
	}
	return typed("g:Bytecode", value), nil
}

func adaptInstructions(ins [][]any) ([]any, error) {
	out := make([]any, len(ins))
	for i, instruction := range ins {
		// First element is the operator name and stays a plain string.
		adapted := make([]any, len(instruction))
		adapted[0] = instruction[0]
		for j := 1; j < len(instruction); j++ {
			av, err := adaptValue(instruction[j])
			if err != nil {
				return nil, err
			}
			adapted[j] = av
		}
		out[i] = adapted
	}
	return out, nil
}

// rawResponse mirrors the server's JSON response envelope.
type rawResponse struct {
	RequestID any `json:"requestId"`
	Status    struct {
		Code       int            `json:"code"`
		Message    string         `json:"message"`
		Attributes map[string]any `json:"attributes"`
	} `json:"status"`
	Result struct {
		Data any            `json:"data"`
		Meta map[string]any `json:"meta"`
	} `json:"result"`
}

// DecodeResponse parses one inbound frame. A missing or unparsable requestId
// is not an error: the message is returned with HasRequestID false so the
// caller can treat the frame as unattributable.
func (c *Codec) DecodeResponse(b []byte) (*ResponseMessage, error) {
	var raw rawResponse
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}
	msg := &ResponseMessage{
		Status: ResponseStatus{
			Code:       raw.Status.Code,
			Message:    raw.Status.Message,
			Attributes: raw.Status.Attributes,
		},
		Meta: raw.Result.Meta,
	}
	if id, ok := parseRequestID(raw.RequestID); ok {
		msg.RequestID = id
		msg.HasRequestID = true
	}
	if raw.Result.Data != nil {
		data, err := decodeValue(raw.Result.Data)
		if err != nil {
			return nil, errors.Wrap(err, "decode result data")
		}
		if list, ok := data.([]any); ok {
			msg.Data = list
		} else {
			msg.Data = []any{data}
		}
	}
	return msg, nil
}

// parseRequestID accepts either the plain string form or the typed g:UUID
// form; anything else counts as absent.
func parseRequestID(v any) (uuid.UUID, bool) {
	switch t := v.(type) {
	case string:
		id, err := uuid.Parse(t)
		return id, err == nil
	case map[string]any:
		s, ok := t["@value"].(string)
		if !ok {
			return uuid.Nil, false
		}
		id, err := uuid.Parse(s)
		return id, err == nil
	default:
		return uuid.Nil, false
	}
}

// decodeValue is the inverse of adaptValue.
func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		typeName, ok := t["@type"].(string)
		if !ok {
			// Plain object: decode each member.
			out := make(map[string]any, len(t))
			for k, mv := range t {
				dv, err := decodeValue(mv)
				if err != nil {
					return nil, err
				}
				out[k] = dv
			}
			return out, nil
		}
		return decodeTyped(typeName, t["@value"])
	case []any:
		return decodeSlice(t)
	default:
		return v, nil
	}
}

func decodeSlice(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, v := range in {
		dv, err := decodeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = dv
	}
	return out, nil
}

func decodeTyped(typeName string, value any) (any, error) {
	switch typeName {
	case "g:Int32":
		n, ok := value.(float64)
		if !ok {
			return nil, errors.Errorf("g:Int32 value is %T", value)
		}
		return int32(n), nil
	case "g:Int64":
		n, ok := value.(float64)
		if !ok {
			return nil, errors.Errorf("g:Int64 value is %T", value)
		}
		return int64(n), nil
	case "g:Float", "g:Double":
		n, ok := value.(float64)
		if !ok {
			return nil, errors.Errorf("%s value is %T", typeName, value)
		}
		return n, nil
	case "g:UUID":
		s, ok := value.(string)
		if !ok {
			return nil, errors.Errorf("g:UUID value is %T", value)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrap(err, "parse g:UUID")
		}
		return id, nil
	case "g:Date", "g:Timestamp":
		n, ok := value.(float64)
		if !ok {
			return nil, errors.Errorf("%s value is %T", typeName, value)
		}
		return time.UnixMilli(int64(n)).UTC(), nil
	case "g:List", "g:Set":
		list, ok := value.([]any)
		if !ok {
			return nil, errors.Errorf("%s value is %T", typeName, value)
		}
		return decodeSlice(list)
	case "g:Map":
		flat, ok := value.([]any)
		if !ok || len(flat)%2 != 0 {
			return nil, errors.Errorf("g:Map value is not an even list")
		}
		out := make(map[any]any, len(flat)/2)
		for i := 0; i < len(flat); i += 2 {
			k, err := decodeValue(flat[i])
			if err != nil {
				return nil, err
			}
			mv, err := decodeValue(flat[i+1])
			if err != nil {
				return nil, err
			}
			out[k] = mv
		}
		return out, nil
	case "g:T", "g:Direction", "g:Cardinality":
		s, ok := value.(string)
		if !ok {
			return nil, errors.Errorf("%s value is %T", typeName, value)
		}
		return s, nil
	case "g:Traverser":
		return decodeTraverser(value)
	case "g:Vertex":
		return decodeVertex(value)
	case "g:Edge":
		return decodeEdge(value)
	case "g:VertexProperty":
		return decodeVertexProperty(value)
	case "g:Property":
		return decodeProperty(value)
	case "g:Path":
		return decodePath(value)
	default:
		return nil, errors.Errorf("unsupported wire type %q", typeName)
	}
}

func asObject(typeName string, value any) (map[string]any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errors.Errorf("%s value is %T", typeName, value)
	}
	return obj, nil
}

func decodeTraverser(value any) (any, error) {
	obj, err := asObject("g:Traverser", value)
	if err != nil {
		return nil, err
	}
	inner, err := decodeValue(obj["value"])
	if err != nil {
		return nil, err
	}
	bulk := int64(1)
	if b, err := decodeValue(obj["bulk"]); err == nil {
		if n, ok := b.(int64); ok {
			bulk = n
		}
	}
	return Traverser{Value: inner, Bulk: bulk}, nil
}

func decodeVertex(value any) (any, error) {
	obj, err := asObject("g:Vertex", value)
	if err != nil {
		return nil, err
	}
	id, err := decodeValue(obj["id"])
	if err != nil {
		return nil, err
	}
	props, err := decodeValue(obj["properties"])
	if err != nil {
		return nil, err
	}
	label, _ := obj["label"].(string)
	return Vertex{ID: id, Label: label, Properties: props}, nil
}

func decodeEdge(value any) (any, error) {
	obj, err := asObject("g:Edge", value)
	if err != nil {
		return nil, err
	}
	id, err := decodeValue(obj["id"])
	if err != nil {
		return nil, err
	}
	inV, err := decodeValue(obj["inV"])
	if err != nil {
		return nil, err
	}
	outV, err := decodeValue(obj["outV"])
	if err != nil {
		return nil, err
	}
	props, err := decodeValue(obj["properties"])
	if err != nil {
		return nil, err
	}
	label, _ := obj["label"].(string)
	inVLabel, _ := obj["inVLabel"].(string)
	outVLabel, _ := obj["outVLabel"].(string)
	return Edge{ID: id, Label: label, InV: inV, InVLabel: inVLabel, OutV: outV, OutVLabel: outVLabel, Properties: props}, nil
}

func decodeVertexProperty(value any) (any, error) {
	obj, err := asObject("g:VertexProperty", value)
	if err != nil {
		return nil, err
	}
	id, err := decodeValue(obj["id"])
	if err != nil {
		return nil, err
	}
	pv, err := decodeValue(obj["value"])
	if err != nil {
		return nil, err
	}
	label, _ := obj["label"].(string)
	return VertexProperty{ID: id, Label: label, Value: pv}, nil
}

func decodeProperty(value any) (any, error) {
	obj, err := asObject("g:Property", value)
	if err != nil {
		return nil, err
	}
	pv, err := decodeValue(obj["value"])
	if err != nil {
		return nil, err
	}
	key, _ := obj["key"].(string)
	return Property{Key: key, Value: pv}, nil
}

func decodePath(value any) (any, error) {
	obj, err := asObject("g:Path", value)
	if err != nil {
		return nil, err
	}
	labels, err := decodeValue(obj["labels"])
	if err != nil {
		return nil, err
	}
	objects, err := decodeValue(obj["objects"])
	if err != nil {
		return nil, err
	}
	p := Path{}
	if l, ok := labels.([]any); ok {
		p.Labels = l
	}
	if o, ok := objects.([]any); ok {
		p.Objects = o
	}
	return p, nil
}
