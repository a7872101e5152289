package driver

import (
	"testing"

	"github.com/matst80/gremlink/graphson"
)

func TestCacheKeyIsDeterministic(t *testing.T) {
	a := cacheKey("g.V(x)", map[string]any{"x": 1, "y": "b"})
	b := cacheKey("g.V(x)", map[string]any{"y": "b", "x": 1})
	if a != b {
		t.Error("binding order must not change the key")
	}
	if cacheKey("g.V(x)", nil) == a {
		t.Error("bindings must contribute to the key")
	}
	if cacheKey("g.V()", nil) == cacheKey("g.E()", nil) {
		t.Error("script must contribute to the key")
	}
}

func TestExpandTraversers(t *testing.T) {
	in := []any{
		graphson.Traverser{Value: "a", Bulk: 3},
		"plain",
		graphson.Traverser{Value: int32(7), Bulk: 0},
	}
	got := expandTraversers(in)
	want := []any{"a", "a", "a", "plain", int32(7)}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
