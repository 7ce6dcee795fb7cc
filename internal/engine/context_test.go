package engine

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestContext_SeedSorted(t *testing.T) {
	ctx := NewContext(map[string]any{"zeta": 1, "alpha": 2, "mid": 3})

	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(ctx.Keys(), want) {
		t.Errorf("seed keys must be sorted: got %v", ctx.Keys())
	}
}

func TestContext_SetPreservesInsertionOrder(t *testing.T) {
	ctx := NewContext(nil)
	ctx.Set("first", 1)
	ctx.Set("second", 2)
	ctx.Set("third", 3)

	// Повторный Set существующего ключа сохраняет его позицию.
	ctx.Set("first", 100)

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(ctx.Keys(), want) {
		t.Errorf("unexpected key order: %v", ctx.Keys())
	}

	v, ok := ctx.Get("first")
	if !ok || v != 100 {
		t.Errorf("expected first=100, got %v", v)
	}
}

func TestContext_JSONRoundTrip_PreservesOrder(t *testing.T) {
	ctx := NewContext(nil)
	ctx.Set("trigger", map[string]any{"form": "data"})
	ctx.Set("http", map[string]any{"status_code": float64(200)})
	ctx.Set("ai", map[string]any{"aiResponse": "4"})

	data, err := json.Marshal(ctx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := &Context{}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(restored.Keys(), ctx.Keys()) {
		t.Errorf("key order lost: %v vs %v", restored.Keys(), ctx.Keys())
	}
	if !reflect.DeepEqual(restored.Snapshot(), ctx.Snapshot()) {
		t.Errorf("values lost: %v vs %v", restored.Snapshot(), ctx.Snapshot())
	}
}

func TestContext_Clone_Independent(t *testing.T) {
	ctx := NewContext(map[string]any{"a": 1})
	clone := ctx.Clone()
	clone.Set("b", 2)

	if _, ok := ctx.Get("b"); ok {
		t.Error("clone must not mutate the original")
	}
	if clone.Len() != 2 || ctx.Len() != 1 {
		t.Errorf("unexpected lengths: clone=%d original=%d", clone.Len(), ctx.Len())
	}
}

func TestContext_MarshalEmpty(t *testing.T) {
	data, err := json.Marshal(NewContext(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected {}, got %s", data)
	}
}
