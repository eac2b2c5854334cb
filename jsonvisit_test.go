package jsonvisit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// chunkSource replays a fixed list of strings as chunks, then io.EOF.
type chunkSource struct {
	chunks [][]byte
	i      int
}

func chunksOf(parts ...string) *chunkSource {
	cs := &chunkSource{}
	for _, p := range parts {
		cs.chunks = append(cs.chunks, []byte(p))
	}
	return cs
}

func (c *chunkSource) Next(ctx context.Context) ([]byte, error) {
	if c.i >= len(c.chunks) {
		return nil, io.EOF
	}
	chunk := c.chunks[c.i]
	c.i++
	return chunk, nil
}

func TestVisit_SelectiveObjectFields(t *testing.T) {
	var got any
	schema := Fields{
		"foo": Leaf(func(v any) error { got = v; return nil }),
	}
	// "baz" is deliberately absent from schema: its value must be scanned
	// past without error and without ever being decoded.
	err := Visit(context.Background(), chunksOf(`{"foo":`, `"bar","baz":42}`), schema)
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if got != "bar" {
		t.Fatalf("got %v, want %q", got, "bar")
	}
}

func TestVisit_ArrayOfLeaves(t *testing.T) {
	var got []any
	schema := Array(Leaf(func(v any) error {
		got = append(got, v)
		return nil
	}))
	err := Visit(context.Background(), chunksOf(`[10`, `,20,`, `30]`), schema)
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	want := []any{float64(10), float64(20), float64(30)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_EmptyArray(t *testing.T) {
	called := false
	schema := Array(Leaf(func(v any) error { called = true; return nil }))
	if err := Visit(context.Background(), chunksOf(`[`, `]`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if called {
		t.Fatalf("leaf callback must not run for an empty array")
	}
}

func TestVisit_EmptyArrayFollowedByMoreInput(t *testing.T) {
	// Regression test: the speculative buffer opened in anticipation of a
	// first element must be properly canceled on an empty array, or its
	// stale start position leaks into a later buffered value.
	var got []any
	schema := Array(Array(Leaf(func(v any) error { got = append(got, v); return nil })))
	if err := Visit(context.Background(), chunksOf(`[[],[1,2]]`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	want := []any{float64(1), float64(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_EmptyObject(t *testing.T) {
	called := false
	schema := Fields{"x": Leaf(func(v any) error { called = true; return nil })}
	if err := Visit(context.Background(), chunksOf(`{`, `}`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if called {
		t.Fatalf("leaf callback must not run when the key is absent")
	}
}

func TestVisit_EmptyObjectFollowedByMoreInput(t *testing.T) {
	var got any
	schema := Array(Fields{"a": Leaf(func(v any) error { got = v; return nil })})
	if err := Visit(context.Background(), chunksOf(`[{},{"a":1}]`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if got != float64(1) {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestVisit_NestedSkippedSubtreeNeverDecoded(t *testing.T) {
	var foo any
	schema := Fields{"foo": Leaf(func(v any) error { foo = v; return nil })}
	doc := `{"foo":1,"bar":{"deep":[1,2,{"x":"y"}],"n":null,"s":"skip me"}}`
	if err := Visit(context.Background(), chunksOf(doc), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if foo != float64(1) {
		t.Fatalf("got %v, want 1", foo)
	}
}

func TestVisit_WholeSubtreeAsLeaf(t *testing.T) {
	var meta any
	schema := Fields{"meta": Leaf(func(v any) error { meta = v; return nil })}
	doc := `{"meta":{"a":1,"b":[2,3]},"other":"x"}`
	if err := Visit(context.Background(), chunksOf(doc), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": []any{float64(2), float64(3)}}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_ChunkBoundariesDoNotAffectResult(t *testing.T) {
	doc := `{"a":[1,2,"x\"y",true,null],"b":{"c":3}}`
	// A Schema is read-only and safe to reuse across Visit calls.
	schema := Fields{
		"a": Array(Leaf(func(v any) error { return nil })),
		"b": Fields{"c": Leaf(func(v any) error { return nil })},
	}
	for split := 0; split <= len(doc); split++ {
		if err := Visit(context.Background(), chunksOf(doc[:split], doc[split:]), schema); err != nil {
			t.Fatalf("split at %d: %v", split, err)
		}
	}
}

func TestVisit_LeafErrorAbortsVisit(t *testing.T) {
	boom := errors.New("boom")
	schema := Fields{"a": Leaf(func(v any) error { return boom })}
	err := Visit(context.Background(), chunksOf(`{"a":1,"b":2}`), schema)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestVisit_SyntaxErrorOnMismatchedSchema(t *testing.T) {
	schema := Array(Leaf(func(v any) error { return nil }))
	err := Visit(context.Background(), chunksOf(`{"a":1}`), schema)
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("got %v, want *SyntaxError", err)
	}
}

func TestVisit_PrematureEndOfInputIsSyntaxError(t *testing.T) {
	schema := Fields{"a": Leaf(func(v any) error { return nil })}
	err := Visit(context.Background(), chunksOf(`{"a":1`), schema)
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("got %v, want *SyntaxError", err)
	}
}

func TestVisit_PropagatesUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	schema := Leaf(func(v any) error { return nil })
	err := Visit(context.Background(), errSource{err: boom}, schema)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

type errSource struct{ err error }

func (e errSource) Next(ctx context.Context) ([]byte, error) { return nil, e.err }

func TestVisit_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	schema := Leaf(func(v any) error { return nil })
	err := Visit(ctx, chunksOf(`42`), schema)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestVisit_TopLevelScalar(t *testing.T) {
	var got any
	schema := Leaf(func(v any) error { got = v; return nil })
	if err := Visit(context.Background(), chunksOf(`"hello"`), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %v, want hello", got)
	}
}

func TestVisitTyped_MatchesVisit(t *testing.T) {
	var got any
	schema := Leaf(func(v any) error { got = v; return nil })
	if err := VisitTyped[string](context.Background(), chunksOf(`"hi"`), schema); err != nil {
		t.Fatalf("VisitTyped: %v", err)
	}
	if got != "hi" {
		t.Fatalf("got %v, want hi", got)
	}
}
