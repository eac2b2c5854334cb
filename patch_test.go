package jsonvisit

import (
	"context"
	"encoding/json"
	"testing"

	jsonpatch "github.com/evanphx/json-patch"
)

func TestPatched_AppliesPatchBeforeCallback(t *testing.T) {
	patch, err := jsonpatch.DecodePatch([]byte(`[{"op":"replace","path":"/n","value":99}]`))
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	var got json.RawMessage
	schema := Fields{
		"obj": Patched(patch, func(raw json.RawMessage) error {
			got = append(json.RawMessage(nil), raw...)
			return nil
		}),
	}
	if err := Visit(context.Background(), chunksOf(`{"obj":{"n":1,"s":"x"}}`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(got, &out); err != nil {
		t.Fatalf("Unmarshal patched output: %v", err)
	}
	if out["n"] != float64(99) || out["s"] != "x" {
		t.Fatalf("got %v, want n=99 s=x", out)
	}
}
