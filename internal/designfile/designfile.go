// Package designfile decodes the JSON experiment definition shared by the
// CLI and the HTTP API into a validated design.
package designfile

import (
	"encoding/json"
	"fmt"
	"io"

	"promptlab/app"
	"promptlab/domain/design"
	"promptlab/domain/space"
	"promptlab/domain/template"
)

// StrategySpec selects a sampling strategy in the definition file.
type StrategySpec struct {
	Mode string `json:"mode"` // "factorial" or "monte_carlo"
	N    int    `json:"n,omitempty"`
}

// Definition is the serialized form of one experiment.
type Definition struct {
	Template string `json:"template,omitempty"`
	// Prompts is the prompt-comparison shorthand: whole prompts compared
	// verbatim, mutually exclusive with Template/PromptSpace.
	Prompts        []string      `json:"prompts,omitempty"`
	PromptSpace    []space.Param `json:"prompt_space,omitempty"`
	PromptStrategy StrategySpec  `json:"prompt_strategy"`
	HyperSpace     []space.Param `json:"hyper_space,omitempty"`
	HyperStrategy  StrategySpec  `json:"hyper_strategy"`
	Seed           int64         `json:"seed,omitempty"`

	OnError     string `json:"on_error,omitempty"` // "fail_fast" (default) or "collect_errors"
	Parallelism int    `json:"parallelism,omitempty"`
}

// Parse decodes a definition from JSON.
func Parse(r io.Reader) (*Definition, error) {
	var def Definition
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode experiment definition: %w", err)
	}
	return &def, nil
}

// Build validates the definition into an immutable design plus run options.
func (def *Definition) Build() (*design.Design, app.RunOptions, error) {
	var (
		tmpl     template.Template
		promptSp space.ParameterSpace
		err      error
	)
	switch {
	case len(def.Prompts) > 0 && def.Template != "":
		return nil, app.RunOptions{}, fmt.Errorf("experiment definition: prompts and template are mutually exclusive")
	case len(def.Prompts) > 0:
		tmpl, promptSp, err = template.FromPromptList(def.Prompts)
		if err != nil {
			return nil, app.RunOptions{}, err
		}
	default:
		tmpl = template.New(def.Template)
		promptSp, err = space.New(def.PromptSpace...)
		if err != nil {
			return nil, app.RunOptions{}, fmt.Errorf("prompt space: %w", err)
		}
	}

	hyperSp, err := space.New(def.HyperSpace...)
	if err != nil {
		return nil, app.RunOptions{}, fmt.Errorf("hyperparameter space: %w", err)
	}

	promptStrategy, err := def.PromptStrategy.toStrategy()
	if err != nil {
		return nil, app.RunOptions{}, fmt.Errorf("prompt strategy: %w", err)
	}
	hyperStrategy, err := def.HyperStrategy.toStrategy()
	if err != nil {
		return nil, app.RunOptions{}, fmt.Errorf("hyperparameter strategy: %w", err)
	}

	d, err := design.New(design.Config{
		Template:       tmpl,
		PromptSpace:    promptSp,
		PromptStrategy: promptStrategy,
		HyperSpace:     hyperSp,
		HyperStrategy:  hyperStrategy,
		Seed:           def.Seed,
	})
	if err != nil {
		return nil, app.RunOptions{}, err
	}

	opts := app.RunOptions{OnError: app.FailFast, Parallelism: def.Parallelism}
	switch def.OnError {
	case "", string(app.FailFast):
	case string(app.CollectErrors):
		opts.OnError = app.CollectErrors
	default:
		return nil, app.RunOptions{}, fmt.Errorf("experiment definition: unknown on_error policy %q", def.OnError)
	}
	return d, opts, nil
}

func (s StrategySpec) toStrategy() (design.Strategy, error) {
	switch design.Mode(s.Mode) {
	case design.ModeFactorial:
		return design.Exhaustive(), nil
	case design.ModeMonteCarlo:
		return design.Random(s.N), nil
	default:
		return design.Strategy{}, fmt.Errorf("unknown sampling mode %q", s.Mode)
	}
}
