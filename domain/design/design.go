// Package design combines a prompt template, a prompt parameter space, and a
// hyperparameter space with one sampling strategy per space into an immutable
// experiment design. Generating the design's conditions is the only operation
// that consumes randomness, and it takes the random stream explicitly so that
// multiple designs can run concurrently without seed interference.
package design

import (
	"fmt"
	"math/rand"

	"promptlab/domain/core"
	"promptlab/domain/sample"
	"promptlab/domain/space"
	"promptlab/domain/template"
)

// DefaultSeed is the documented fixed seed used when a design does not set
// one, so unconfigured runs are still reproducible.
const DefaultSeed int64 = 416

// Mode selects how a parameter space is traversed.
type Mode string

const (
	ModeFactorial  Mode = "factorial"
	ModeMonteCarlo Mode = "monte_carlo"
)

// Strategy is a tagged variant: exhaustive enumeration, or N independent
// uniform draws with replacement.
type Strategy struct {
	Mode Mode `json:"mode"`
	N    int  `json:"n,omitempty"`
}

// Exhaustive is the full-factorial strategy.
func Exhaustive() Strategy {
	return Strategy{Mode: ModeFactorial}
}

// Random is the Monte Carlo strategy with n draws.
func Random(n int) Strategy {
	return Strategy{Mode: ModeMonteCarlo, N: n}
}

func (s Strategy) validate() error {
	switch s.Mode {
	case ModeFactorial:
		return nil
	case ModeMonteCarlo:
		if s.N < 0 {
			return core.NewSampleSizeError(s.N)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown sampling mode %q", core.ErrInvalidSampleSize, s.Mode)
	}
}

// Policy is the closed set of condition-generation algorithms implied by the
// prompt/hyper strategy pair. Each policy has a distinct total condition
// count and nesting order.
type Policy string

const (
	// PolicyFullFactorial pairs every prompt binding with every hyper binding (P*H conditions).
	PolicyFullFactorial Policy = "full_factorial"
	// PolicyFactorialPromptsRandomHypers draws N fresh hyper bindings per prompt binding (P*N conditions).
	PolicyFactorialPromptsRandomHypers Policy = "factorial_prompts_random_hypers"
	// PolicyRandomPromptsFactorialHypers draws N fresh prompt bindings per hyper binding (H*N conditions).
	PolicyRandomPromptsFactorialHypers Policy = "random_prompts_factorial_hypers"
	// PolicyMonteCarlo draws one prompt and one hyper binding per iteration (N conditions).
	PolicyMonteCarlo Policy = "monte_carlo"
)

// Condition is one concrete trial: the rendered prompt plus the bindings it
// was built from. Conditions are transient; each is consumed exactly once by
// the runner and discarded after flattening.
type Condition struct {
	Index        int           `json:"index"`
	Prompt       string        `json:"prompt"`
	PromptParams space.Binding `json:"prompt_params"`
	Hypers       space.Binding `json:"hypers"`
}

// Config is the caller-facing input to New.
type Config struct {
	Template       template.Template
	PromptSpace    space.ParameterSpace
	PromptStrategy Strategy
	HyperSpace     space.ParameterSpace
	HyperStrategy  Strategy
	// Seed for the design's random stream. Zero means DefaultSeed; reproducibility
	// depends on the seed being fixed before any draw.
	Seed int64
}

// Design is an immutable experiment configuration. Created once per
// experiment and never mutated after construction.
type Design struct {
	tmpl           template.Template
	promptSpace    space.ParameterSpace
	promptStrategy Strategy
	hyperSpace     space.ParameterSpace
	hyperStrategy  Strategy
	seed           int64
	policy         Policy
	fingerprint    core.Hash
}

// reservedColumns are claimed by the flattener and may not be used as
// parameter names in either space.
var reservedColumns = map[string]struct{}{
	ColPrompt: {},
	ColOutput: {},
}

// New validates the configuration and builds a Design. All configuration
// errors (invalid strategy counts, reserved parameter names, template slots
// not covered by the prompt space) surface here, before any condition is
// generated.
func New(cfg Config) (*Design, error) {
	if err := cfg.PromptStrategy.validate(); err != nil {
		return nil, fmt.Errorf("prompt strategy: %w", err)
	}
	if err := cfg.HyperStrategy.validate(); err != nil {
		return nil, fmt.Errorf("hyperparameter strategy: %w", err)
	}
	for _, name := range cfg.PromptSpace.Names() {
		if _, bad := reservedColumns[name]; bad {
			return nil, core.NewReservedParamError(name)
		}
	}
	for _, name := range cfg.HyperSpace.Names() {
		if _, bad := reservedColumns[name]; bad {
			return nil, core.NewReservedParamError(name)
		}
	}
	if err := cfg.Template.Validate(cfg.PromptSpace); err != nil {
		return nil, err
	}

	policy := derivePolicy(cfg.PromptStrategy, cfg.HyperStrategy)
	if policy == PolicyMonteCarlo && cfg.PromptStrategy.N != cfg.HyperStrategy.N {
		return nil, fmt.Errorf("%w: monte carlo composition runs a single loop, prompt draws (%d) and hyper draws (%d) must agree",
			core.ErrInvalidSampleSize, cfg.PromptStrategy.N, cfg.HyperStrategy.N)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = DefaultSeed
	}

	d := &Design{
		tmpl:           cfg.Template,
		promptSpace:    cfg.PromptSpace,
		promptStrategy: cfg.PromptStrategy,
		hyperSpace:     cfg.HyperSpace,
		hyperStrategy:  cfg.HyperStrategy,
		seed:           seed,
		policy:         policy,
	}
	d.fingerprint = computeFingerprint(d)
	return d, nil
}

func derivePolicy(prompt, hyper Strategy) Policy {
	switch {
	case prompt.Mode == ModeFactorial && hyper.Mode == ModeFactorial:
		return PolicyFullFactorial
	case prompt.Mode == ModeFactorial && hyper.Mode == ModeMonteCarlo:
		return PolicyFactorialPromptsRandomHypers
	case prompt.Mode == ModeMonteCarlo && hyper.Mode == ModeFactorial:
		return PolicyRandomPromptsFactorialHypers
	default:
		return PolicyMonteCarlo
	}
}

// Accessors

func (d *Design) Template() template.Template       { return d.tmpl }
func (d *Design) PromptSpace() space.ParameterSpace { return d.promptSpace }
func (d *Design) HyperSpace() space.ParameterSpace  { return d.hyperSpace }
func (d *Design) PromptStrategy() Strategy          { return d.promptStrategy }
func (d *Design) HyperStrategy() Strategy           { return d.hyperStrategy }
func (d *Design) Seed() int64                       { return d.seed }
func (d *Design) Policy() Policy                    { return d.policy }

// Fingerprint is a deterministic hash of everything that determines the
// condition sequence: template, spaces, strategies, and seed. Two designs
// with equal fingerprints generate identical conditions.
func (d *Design) Fingerprint() core.Hash { return d.fingerprint }

// ConditionCount is the number of conditions the design will generate.
func (d *Design) ConditionCount() int {
	switch d.policy {
	case PolicyFullFactorial:
		return d.promptSpace.Cardinality() * d.hyperSpace.Cardinality()
	case PolicyFactorialPromptsRandomHypers:
		return d.promptSpace.Cardinality() * d.hyperStrategy.N
	case PolicyRandomPromptsFactorialHypers:
		return d.hyperSpace.Cardinality() * d.promptStrategy.N
	default:
		return d.promptStrategy.N
	}
}

// Conditions materializes the full ordered condition sequence, consuming the
// supplied random stream. The stream is owned exclusively by this call;
// callers that want the design's documented seed should pass
// rand.New(rand.NewSource(d.Seed())) or obtain a stream from the RNG port.
// Random draws are never deduplicated: recurrence of a binding is intentional
// Monte Carlo sampling, not a defect.
func (d *Design) Conditions(rng *rand.Rand) ([]Condition, error) {
	out := make([]Condition, 0, d.ConditionCount())

	emit := func(promptParams, hypers space.Binding) error {
		prompt, err := d.tmpl.Render(promptParams)
		if err != nil {
			return fmt.Errorf("condition %d (params=%s): %w", len(out), promptParams, err)
		}
		out = append(out, Condition{
			Index:        len(out),
			Prompt:       prompt,
			PromptParams: promptParams,
			Hypers:       hypers,
		})
		return nil
	}

	switch d.policy {
	case PolicyFullFactorial:
		for _, promptParams := range sample.Enumerate(d.promptSpace) {
			for _, hypers := range sample.Enumerate(d.hyperSpace) {
				if err := emit(promptParams, hypers); err != nil {
					return nil, err
				}
			}
		}

	case PolicyFactorialPromptsRandomHypers:
		for _, promptParams := range sample.Enumerate(d.promptSpace) {
			hyperDraws, err := sample.Draw(d.hyperSpace, d.hyperStrategy.N, rng)
			if err != nil {
				return nil, err
			}
			for _, hypers := range hyperDraws {
				if err := emit(promptParams, hypers); err != nil {
					return nil, err
				}
			}
		}

	case PolicyRandomPromptsFactorialHypers:
		for _, hypers := range sample.Enumerate(d.hyperSpace) {
			promptDraws, err := sample.Draw(d.promptSpace, d.promptStrategy.N, rng)
			if err != nil {
				return nil, err
			}
			for _, promptParams := range promptDraws {
				if err := emit(promptParams, hypers); err != nil {
					return nil, err
				}
			}
		}

	default: // PolicyMonteCarlo
		for i := 0; i < d.promptStrategy.N; i++ {
			promptParams := sample.DrawOne(d.promptSpace, rng)
			hypers := sample.DrawOne(d.hyperSpace, rng)
			if err := emit(promptParams, hypers); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// computeFingerprint hashes a deterministic string representation of the
// design's condition-determining inputs.
func computeFingerprint(d *Design) core.Hash {
	data := fmt.Sprintf("template:%s|prompt_space:%s|prompt_strategy:%s/%d|hyper_space:%s|hyper_strategy:%s/%d|seed:%d",
		d.tmpl.String(),
		describeSpace(d.promptSpace),
		d.promptStrategy.Mode, d.promptStrategy.N,
		describeSpace(d.hyperSpace),
		d.hyperStrategy.Mode, d.hyperStrategy.N,
		d.seed,
	)
	return core.NewHash([]byte(data))
}

func describeSpace(sp space.ParameterSpace) string {
	s := ""
	for i := 0; i < sp.Len(); i++ {
		p := sp.At(i)
		s += fmt.Sprintf("%s=%v;", p.Name, p.Candidates)
	}
	return s
}
