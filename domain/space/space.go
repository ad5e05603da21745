// Package space defines parameter spaces: ordered sets of named parameters,
// each with a non-empty ordered list of candidate values. Spaces are built
// once from caller configuration and are read-only afterwards.
package space

import (
	"fmt"
	"strings"

	"promptlab/domain/core"
)

// Value is one candidate setting for a parameter. Callers supply immutable
// scalars (strings, numbers, bools).
type Value = any

// Param declares one parameter and its ordered candidate values.
type Param struct {
	Name       string  `json:"name"`
	Candidates []Value `json:"candidates"`
}

// ParameterSpace is an ordered mapping from parameter name to candidate values.
type ParameterSpace struct {
	params []Param
	index  map[string]int
}

// New validates and builds a ParameterSpace. Every parameter must have at
// least one candidate and names must be unique within the space.
func New(params ...Param) (ParameterSpace, error) {
	index := make(map[string]int, len(params))
	for i, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return ParameterSpace{}, fmt.Errorf("%w: parameter %d has an empty name", core.ErrInvalidSpace, i)
		}
		if name != p.Name {
			return ParameterSpace{}, fmt.Errorf("%w: parameter name %q has surrounding whitespace", core.ErrInvalidSpace, p.Name)
		}
		if len(p.Candidates) == 0 {
			return ParameterSpace{}, core.NewEmptyCandidatesError(name)
		}
		if _, dup := index[name]; dup {
			return ParameterSpace{}, core.NewDuplicateParamError(name)
		}
		index[name] = i
	}

	// Copy so later mutation of the caller's slices cannot reach the space.
	owned := make([]Param, len(params))
	for i, p := range params {
		owned[i] = Param{Name: p.Name, Candidates: append([]Value(nil), p.Candidates...)}
	}
	return ParameterSpace{params: owned, index: index}, nil
}

// MustNew is New for static spaces in tests and examples; panics on error.
func MustNew(params ...Param) ParameterSpace {
	sp, err := New(params...)
	if err != nil {
		panic(err)
	}
	return sp
}

// Len returns the number of parameters.
func (s ParameterSpace) Len() int {
	return len(s.params)
}

// Names returns parameter names in declared order.
func (s ParameterSpace) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// At returns the i-th parameter in declared order.
func (s ParameterSpace) At(i int) Param {
	return s.params[i]
}

// Candidates returns the ordered candidate values for a parameter.
func (s ParameterSpace) Candidates(name string) ([]Value, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.params[i].Candidates, true
}

// Has reports whether the space declares a parameter with the given name.
func (s ParameterSpace) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Cardinality is the size of the full cross product: the product of
// per-parameter candidate counts. An empty space has cardinality 1
// (the single empty binding).
func (s ParameterSpace) Cardinality() int {
	n := 1
	for _, p := range s.params {
		n *= len(p.Candidates)
	}
	return n
}

// Bound is one parameter set to one concrete value.
type Bound struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Binding assigns one concrete value to every parameter of a space, in the
// space's declared order.
type Binding []Bound

// Get returns the bound value for a parameter name.
func (b Binding) Get(name string) (Value, bool) {
	for _, entry := range b {
		if entry.Name == name {
			return entry.Value, true
		}
	}
	return nil, false
}

// Map returns the binding as a name-to-value map.
func (b Binding) Map() map[string]Value {
	m := make(map[string]Value, len(b))
	for _, entry := range b {
		m[entry.Name] = entry.Value
	}
	return m
}

// String renders the binding as "name=value" pairs in declared order.
func (b Binding) String() string {
	var sb strings.Builder
	for i, entry := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", entry.Name, entry.Value)
	}
	return sb.String()
}

// Equal reports whether two bindings have identical names and values in
// identical order.
func (b Binding) Equal(other Binding) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i].Name != other[i].Name || b[i].Value != other[i].Value {
			return false
		}
	}
	return true
}
