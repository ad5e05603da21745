package template

import (
	"errors"
	"testing"

	"promptlab/domain/core"
	"promptlab/domain/space"
)

func TestSlots(t *testing.T) {
	tmpl := New("It is {degrees} degrees in {city}, {city} is {mood}")
	slots := tmpl.Slots()
	want := []string{"degrees", "city", "mood"}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slots[%d] = %q, want %q", i, slots[i], want[i])
		}
	}
}

func TestValidate_SlotSubset(t *testing.T) {
	sp := space.MustNew(
		space.Param{Name: "degrees", Candidates: []space.Value{10, 20}},
	)

	if err := New("It is {degrees} degrees").Validate(sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := New("It is {degrees} degrees in {city}").Validate(sp)
	if !errors.Is(err, core.ErrTemplateRender) {
		t.Fatalf("error = %v, want ErrTemplateRender", err)
	}
}

func TestRender(t *testing.T) {
	tmpl := New("It is {degrees} degrees, tone: {tone}")
	got, err := tmpl.Render(space.Binding{
		{Name: "degrees", Value: 20},
		{Name: "tone", Value: "casual"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "It is 20 degrees, tone: casual"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRender_UnboundSlot(t *testing.T) {
	tmpl := New("It is {degrees} degrees")
	_, err := tmpl.Render(space.Binding{{Name: "tone", Value: "formal"}})
	if !errors.Is(err, core.ErrTemplateRender) {
		t.Fatalf("error = %v, want ErrTemplateRender", err)
	}
}

func TestRender_NoSlots(t *testing.T) {
	got, err := New("plain prompt").Render(nil)
	if err != nil || got != "plain prompt" {
		t.Fatalf("Render = %q, %v", got, err)
	}
}

func TestFromPromptList(t *testing.T) {
	tmpl, sp, err := FromPromptList([]string{"write a haiku", "write a limerick"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.Cardinality() != 2 {
		t.Errorf("cardinality = %d, want 2", sp.Cardinality())
	}
	got, err := tmpl.Render(space.Binding{{Name: "task", Value: "write a haiku"}})
	if err != nil || got != "write a haiku" {
		t.Errorf("Render = %q, %v", got, err)
	}
}
