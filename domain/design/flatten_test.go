package design

import (
	"math/rand"
	"reflect"
	"testing"

	"promptlab/domain/space"
)

func TestFlatten_Keys(t *testing.T) {
	cond := Condition{
		Index:  0,
		Prompt: "Write a formal greeting",
		PromptParams: space.Binding{
			{Name: "tone", Value: "formal"},
		},
		Hypers: space.Binding{
			{Name: "temperature", Value: 0.2},
			{Name: "model", Value: "gpt-4o-mini"},
		},
	}
	rec := Flatten(cond, "Good day to you.")

	want := Record{
		"prompt":            "Write a formal greeting",
		"output":            "Good day to you.",
		"param_tone":        "formal",
		"hyper_temperature": 0.2,
		"hyper_model":       "gpt-4o-mini",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("Flatten = %v, want %v", rec, want)
	}
}

func TestFlatten_Pure(t *testing.T) {
	cond := Condition{
		Prompt:       "p",
		PromptParams: space.Binding{{Name: "a", Value: 1}},
		Hypers:       space.Binding{{Name: "b", Value: 2}},
	}
	first := Flatten(cond, "out")
	second := Flatten(cond, "out")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("flattening is not idempotent: %v vs %v", first, second)
	}
}

// Records produced under every composition policy share one key set, so
// results from exhaustive and randomized runs concatenate into one table.
func TestFlatten_SchemaUniformAcrossPolicies(t *testing.T) {
	strategies := []struct {
		prompt, hyper Strategy
	}{
		{Exhaustive(), Exhaustive()},
		{Exhaustive(), Random(3)},
		{Random(3), Exhaustive()},
		{Random(3), Random(3)},
	}

	var wantKeys map[string]struct{}
	for _, st := range strategies {
		d := newDesign(t, st.prompt, st.hyper, 99)
		conds, err := d.Conditions(rand.New(rand.NewSource(d.Seed())))
		if err != nil {
			t.Fatalf("Conditions: %v", err)
		}
		for _, cond := range conds {
			rec := Flatten(cond, "x")
			keys := make(map[string]struct{}, len(rec))
			for k := range rec {
				keys[k] = struct{}{}
			}
			if wantKeys == nil {
				wantKeys = keys
				continue
			}
			if !reflect.DeepEqual(keys, wantKeys) {
				t.Fatalf("policy %s produced key set %v, want %v", d.Policy(), keys, wantKeys)
			}
		}
	}
}

func TestColumns_StableOrder(t *testing.T) {
	d := newDesign(t, Exhaustive(), Exhaustive(), 1)
	got := d.Columns()
	want := []string{"prompt", "output", "param_tone", "hyper_temperature"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Columns = %v, want %v", got, want)
	}
}
