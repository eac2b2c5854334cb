package jsonvisit

import (
	"context"
	"testing"
)

func TestFilter_LeafOnlyForwardsTruthyPredicate(t *testing.T) {
	var got []any
	inner := Leaf(func(v any) error { got = append(got, v); return nil })
	schema := Array(Filter(`value >= 10`, inner))
	err := Visit(context.Background(), chunksOf(`[5,10,15,3,20]`), schema)
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	want := []any{float64(10), float64(15), float64(20)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFilter_NonLeafSchemaAppliedOnlyWhenTruthy(t *testing.T) {
	var names []any
	inner := Fields{"name": Leaf(func(v any) error { names = append(names, v); return nil })}
	schema := Array(Filter(`value.status == "active"`, inner))
	doc := `[{"status":"active","name":"a"},{"status":"inactive","name":"b"},{"status":"active","name":"c"}]`
	if err := Visit(context.Background(), chunksOf(doc), schema); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Fatalf("got %v, want [a c]", names)
	}
}
