// Package template implements prompt templates with named substitution
// slots of the form {slot}.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"promptlab/domain/core"
	"promptlab/domain/space"
)

var slotPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is a prompt string with named substitution slots.
type Template struct {
	raw string
}

// New wraps a raw template string.
func New(raw string) Template {
	return Template{raw: raw}
}

// String returns the raw template text.
func (t Template) String() string {
	return t.raw
}

// Slots returns the slot names referenced by the template, deduplicated,
// in first-appearance order.
func (t Template) Slots() []string {
	matches := slotPattern.FindAllStringSubmatch(t.raw, -1)
	seen := make(map[string]struct{}, len(matches))
	var slots []string
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		slots = append(slots, name)
	}
	return slots
}

// Validate checks that every slot referenced by the template is declared by
// the space. This runs at design construction so that a schema-inconsistent
// pairing fails before any condition is generated.
func (t Template) Validate(sp space.ParameterSpace) error {
	for _, slot := range t.Slots() {
		if !sp.Has(slot) {
			return fmt.Errorf("template %q: %w", t.raw, core.NewUnboundSlotError(slot))
		}
	}
	return nil
}

// Render substitutes the binding's values into the template. A slot with no
// bound value fails the render; it is never silently skipped.
func (t Template) Render(b space.Binding) (string, error) {
	var renderErr error
	out := slotPattern.ReplaceAllStringFunc(t.raw, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := b.Get(name)
		if !ok {
			if renderErr == nil {
				renderErr = core.NewUnboundSlotError(name)
			}
			return match
		}
		return fmt.Sprint(val)
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

// FromPromptList builds a template/space pair for a plain prompt-comparison
// experiment: a single parameter ranging over whole prompts, rendered
// verbatim. The synthetic parameter is named "task" so it cannot collide
// with the reserved output columns.
func FromPromptList(prompts []string) (Template, space.ParameterSpace, error) {
	candidates := make([]space.Value, len(prompts))
	for i, p := range prompts {
		candidates[i] = p
	}
	sp, err := space.New(space.Param{Name: "task", Candidates: candidates})
	if err != nil {
		return Template{}, space.ParameterSpace{}, err
	}
	return New("{task}"), sp, nil
}

// Describe is a short human-readable form used in logs: the template text
// with whitespace collapsed, truncated.
func (t Template) Describe() string {
	s := strings.Join(strings.Fields(t.raw), " ")
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
