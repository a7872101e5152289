package graphson

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kylelemons/godebug/pretty"
)

func TestEncodeRequestFraming(t *testing.T) {
	c := NewCodec("")
	id := uuid.MustParse("cb682578-9d92-4499-9ebc-5c6aa73c5397")
	frame, err := c.EncodeRequest(&RequestMessage{
		RequestID: id,
		Op:        OpBytecode,
		Processor: ProcessorTraversal,
		Args:      map[string]any{ArgAliases: map[string]any{"g": "g"}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if int(frame[0]) != len(MimeV3) {
		t.Fatalf("mime length byte: expected %d, got %d", len(MimeV3), frame[0])
	}
	if got := string(frame[1 : 1+frame[0]]); got != MimeV3 {
		t.Fatalf("mime identifier: expected %q, got %q", MimeV3, got)
	}

	var body map[string]any
	if err := json.Unmarshal(frame[1+frame[0]:], &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	want := map[string]any{
		"requestId": map[string]any{"@type": "g:UUID", "@value": id.String()},
		"op":        "bytecode",
		"processor": "traversal",
		"args": map[string]any{
			"aliases": map[string]any{"@type": "g:Map", "@value": []any{"g", "g"}},
		},
	}
	if diff := pretty.Compare(body, want); diff != "" {
		t.Errorf("request body mismatch (-got +want):\n%s", diff)
	}
}

func TestEncodeRequestOmitsEmptyProcessor(t *testing.T) {
	c := NewCodec("")
	frame, err := c.EncodeRequest(&RequestMessage{
		RequestID: uuid.New(),
		Op:        OpEval,
		Args:      map[string]any{ArgGremlin: "g.V()"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(frame[1+frame[0]:], &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if _, present := body["processor"]; present {
		t.Error("eval request must not carry a processor field")
	}
}

func TestBindingsExemptFromMapWrapping(t *testing.T) {
	c := NewCodec("")
	frame, err := c.EncodeRequest(&RequestMessage{
		RequestID: uuid.New(),
		Op:        OpEval,
		Args: map[string]any{
			ArgGremlin:  "g.V(x)",
			ArgBindings: map[string]any{"x": 1},
			ArgAliases:  map[string]any{"g": "g"},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var body struct {
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal(frame[1+frame[0]:], &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}

	// Bindings stay a flat object whose values are adapted individually.
	bindings, ok := body.Args["bindings"].(map[string]any)
	if !ok {
		t.Fatalf("bindings should be a plain object, got %T", body.Args["bindings"])
	}
	if diff := pretty.Compare(bindings["x"], map[string]any{"@type": "g:Int32", "@value": float64(1)}); diff != "" {
		t.Errorf("binding value mismatch (-got +want):\n%s", diff)
	}
	// Every other map arg gets the usual g:Map wrapping.
	aliases, ok := body.Args["aliases"].(map[string]any)
	if !ok || aliases["@type"] != "g:Map" {
		t.Errorf("aliases should be a wrapped g:Map, got %v", body.Args["aliases"])
	}
}

func TestAdaptValueRoundTrip(t *testing.T) {
	id := uuid.New()
	in := []any{
		int32(7),
		int64(1 << 40),
		3.5,
		"label",
		true,
		id,
		[]any{int32(1), "two"},
		map[string]any{"k": int32(9)},
	}
	adapted, err := adaptValue(in)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	// Simulate the wire: JSON-encode and decode before reading back.
	raw, err := json.Marshal(adapted)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := decodeValue(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []any{
		int32(7),
		int64(1 << 40),
		3.5,
		"label",
		true,
		id,
		[]any{int32(1), "two"},
		map[any]any{"k": int32(9)},
	}
	if diff := pretty.Compare(got, want); diff != "" {
		t.Errorf("round trip mismatch (-got +want):\n%s", diff)
	}
}

func TestAdaptRejectsUnsupported(t *testing.T) {
	type odd struct{}
	if _, err := adaptValue(odd{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestAdaptBytecode(t *testing.T) {
	bc := NewBytecode().
		AddSource("withStrategies", "ReadOnlyStrategy").
		AddStep("V").
		AddStep("has", "name", "marko")
	adapted, err := adaptValue(bc)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	want := map[string]any{
		"@type": "g:Bytecode",
		"@value": map[string]any{
			"source": []any{[]any{"withStrategies", "ReadOnlyStrategy"}},
			"step":   []any{[]any{"V"}, []any{"has", "name", "marko"}},
		},
	}
	if diff := pretty.Compare(adapted, want); diff != "" {
		t.Errorf("bytecode mismatch (-got +want):\n%s", diff)
	}
}

func TestDecodeResponseRequestIDForms(t *testing.T) {
	c := NewCodec("")
	id := uuid.New()

	cases := []struct {
		name   string
		body   string
		wantID bool
	}{
		{"plain string", `{"requestId":"` + id.String() + `","status":{"code":200},"result":{}}`, true},
		{"typed uuid", `{"requestId":{"@type":"g:UUID","@value":"` + id.String() + `"},"status":{"code":200},"result":{}}`, true},
		{"null", `{"requestId":null,"status":{"code":500,"message":"boom"},"result":{}}`, false},
		{"absent", `{"status":{"code":500},"result":{}}`, false},
		{"garbage", `{"requestId":"not-a-uuid","status":{"code":200},"result":{}}`, false},
	}
	for _, tc := range cases {
		msg, err := c.DecodeResponse([]byte(tc.body))
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if msg.HasRequestID != tc.wantID {
			t.Errorf("%s: HasRequestID = %v, want %v", tc.name, msg.HasRequestID, tc.wantID)
		}
		if tc.wantID && msg.RequestID != id {
			t.Errorf("%s: RequestID = %s, want %s", tc.name, msg.RequestID, id)
		}
	}
}

func TestDecodeResponseData(t *testing.T) {
	c := NewCodec("")
	body := `{
		"requestId": "` + uuid.NewString() + `",
		"status": {"code": 206, "message": "", "attributes": {}},
		"result": {"data": {"@type":"g:List","@value":[{"@type":"g:Int32","@value":1},"a"]}, "meta": {}}
	}`
	msg, err := c.DecodeResponse([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Status.Code != StatusPartialContent {
		t.Errorf("status: expected 206, got %d", msg.Status.Code)
	}
	if diff := pretty.Compare(msg.Data, []any{int32(1), "a"}); diff != "" {
		t.Errorf("data mismatch (-got +want):\n%s", diff)
	}
}

func TestDecodeGraphElements(t *testing.T) {
	c := NewCodec("")
	body := `{
		"requestId": "` + uuid.NewString() + `",
		"status": {"code": 200},
		"result": {"data": {"@type":"g:List","@value":[
			{"@type":"g:Vertex","@value":{"id":{"@type":"g:Int64","@value":1},"label":"person"}},
			{"@type":"g:Edge","@value":{"id":{"@type":"g:Int64","@value":7},"label":"knows","inV":{"@type":"g:Int64","@value":2},"inVLabel":"person","outV":{"@type":"g:Int64","@value":1},"outVLabel":"person"}},
			{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":2},"value":"ok"}}
		]}}
	}`
	msg, err := c.DecodeResponse([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msg.Data) != 3 {
		t.Fatalf("expected 3 values, got %d", len(msg.Data))
	}
	v, ok := msg.Data[0].(Vertex)
	if !ok || v.Label != "person" || v.ID != int64(1) {
		t.Errorf("vertex mismatch: %#v", msg.Data[0])
	}
	e, ok := msg.Data[1].(Edge)
	if !ok || e.Label != "knows" || e.InV != int64(2) || e.OutV != int64(1) {
		t.Errorf("edge mismatch: %#v", msg.Data[1])
	}
	tr, ok := msg.Data[2].(Traverser)
	if !ok || tr.Bulk != 2 || tr.Value != "ok" {
		t.Errorf("traverser mismatch: %#v", msg.Data[2])
	}
}

func TestDecodeResponseRejectsGarbage(t *testing.T) {
	c := NewCodec("")
	if _, err := c.DecodeResponse([]byte("not json")); err == nil {
		t.Fatal("expected error on unparsable payload")
	}
	_, err := c.DecodeResponse([]byte(`{"requestId":"x","status":{"code":200},"result":{"data":{"@type":"g:Nope","@value":1}}}`))
	if err == nil || !strings.Contains(err.Error(), "g:Nope") {
		t.Fatalf("expected unsupported-type error, got %v", err)
	}
}
