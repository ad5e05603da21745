package app

import (
	"context"
	"fmt"
	"time"

	"promptlab/domain/core"
	"promptlab/domain/design"
	"promptlab/domain/space"
	"promptlab/internal"
	"promptlab/ports"

	"golang.org/x/sync/errgroup"
)

// ErrorPolicy selects what happens when the producer fails on a condition.
// The choice is explicit per run because partial-run semantics change
// downstream sample-size accounting.
type ErrorPolicy string

const (
	// FailFast aborts the run on the first production failure; no records are
	// returned and the error names the failing condition's bindings.
	FailFast ErrorPolicy = "fail_fast"
	// CollectErrors records the condition as failed and continues; failed
	// conditions end up in RunResult.Failures, not in Records.
	CollectErrors ErrorPolicy = "collect_errors"
)

// RunOptions configures one execution of a design.
type RunOptions struct {
	OnError ErrorPolicy
	// Parallelism bounds concurrent producer calls; values below 2 run
	// sequentially. Conditions are materialized before any dispatch and
	// results are index-addressed, so record order never depends on it.
	Parallelism int
	// Persist writes the run and its records through the record repository
	// when one is configured.
	Persist bool
}

// ConditionFailure records one failed condition under CollectErrors.
type ConditionFailure struct {
	Index        int           `json:"index"`
	PromptParams space.Binding `json:"prompt_params"`
	Hypers       space.Binding `json:"hypers"`
	Err          string        `json:"error"`
}

// RunResult is the complete output of one run.
type RunResult struct {
	RunID       core.RunID         `json:"run_id"`
	Policy      design.Policy      `json:"policy"`
	Fingerprint core.Hash          `json:"fingerprint"`
	Seed        int64              `json:"seed"`
	Records     []design.Record    `json:"records"`
	Failures    []ConditionFailure `json:"failures,omitempty"`
	RuntimeMs   int64              `json:"runtime_ms"`
}

// ExperimentService drives a design: it materializes conditions, invokes the
// injected producer once per condition, and flattens the outcomes.
type ExperimentService struct {
	producer ports.Producer
	rng      ports.RNG
	records  ports.RecordRepository // optional
	log      *internal.Logger
}

// NewExperimentService creates an experiment service. records may be nil
// when no persistence is wanted.
func NewExperimentService(producer ports.Producer, rng ports.RNG, records ports.RecordRepository, logger *internal.Logger) *ExperimentService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExperimentService{
		producer: producer,
		rng:      rng,
		records:  records,
		log:      logger,
	}
}

// Run executes the design. The random stream is fully consumed during
// condition generation, before any producer dispatch, so parallel execution
// never affects which bindings were sampled.
func (s *ExperimentService) Run(ctx context.Context, d *design.Design, opts RunOptions) (*RunResult, error) {
	if opts.OnError != FailFast && opts.OnError != CollectErrors {
		return nil, fmt.Errorf("run options: unknown error policy %q", opts.OnError)
	}

	start := time.Now()
	runID := core.RunID(core.NewID())

	stream, err := s.rng.SeededStream(ctx, "design:"+d.Fingerprint().String(), d.Seed())
	if err != nil {
		return nil, fmt.Errorf("seed stream: %w", err)
	}
	conditions, err := d.Conditions(stream)
	if err != nil {
		return nil, err
	}

	s.log.Info("[ExperimentService] run %s: policy=%s conditions=%d seed=%d parallelism=%d",
		runID, d.Policy(), len(conditions), d.Seed(), opts.Parallelism)

	outputs := make([]string, len(conditions))
	failures := make([]*ConditionFailure, len(conditions))

	produce := func(ctx context.Context, cond design.Condition) error {
		output, err := s.producer.Produce(ctx, cond.Prompt, cond.Hypers)
		if err != nil {
			failure := newProductionError(cond, err)
			if opts.OnError == FailFast {
				return failure
			}
			s.log.Warn("[ExperimentService] run %s: %v", runID, failure)
			failures[cond.Index] = &ConditionFailure{
				Index:        cond.Index,
				PromptParams: cond.PromptParams,
				Hypers:       cond.Hypers,
				Err:          err.Error(),
			}
			return nil
		}
		outputs[cond.Index] = output
		return nil
	}

	if opts.Parallelism > 1 {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(opts.Parallelism)
		for _, cond := range conditions {
			if err := groupCtx.Err(); err != nil {
				break
			}
			cond := cond
			group.Go(func() error {
				return produce(groupCtx, cond)
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, cond := range conditions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := produce(ctx, cond); err != nil {
				return nil, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:       runID,
		Policy:      d.Policy(),
		Fingerprint: d.Fingerprint(),
		Seed:        d.Seed(),
		Records:     make([]design.Record, 0, len(conditions)),
	}
	for i, cond := range conditions {
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
			continue
		}
		result.Records = append(result.Records, design.Flatten(cond, outputs[i]))
	}
	result.RuntimeMs = time.Since(start).Milliseconds()

	if opts.Persist && s.records != nil {
		if err := s.persist(ctx, d, result); err != nil {
			return nil, err
		}
	}

	s.log.Info("[ExperimentService] run %s: done records=%d failed=%d runtime=%dms",
		runID, len(result.Records), len(result.Failures), result.RuntimeMs)
	return result, nil
}

func (s *ExperimentService) persist(ctx context.Context, d *design.Design, result *RunResult) error {
	meta := ports.RunMeta{
		ID:          result.RunID,
		Policy:      result.Policy,
		Fingerprint: result.Fingerprint,
		Seed:        result.Seed,
		Columns:     d.Columns(),
		Conditions:  len(result.Records) + len(result.Failures),
		Failed:      len(result.Failures),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.records.CreateRun(ctx, meta); err != nil {
		return fmt.Errorf("persist run %s: %w", result.RunID, err)
	}
	if err := s.records.AppendRecords(ctx, result.RunID, result.Records); err != nil {
		return fmt.Errorf("persist records for run %s: %w", result.RunID, err)
	}
	return nil
}

func newProductionError(cond design.Condition, err error) error {
	return fmt.Errorf("%w: condition %d (params=%s hypers=%s): %v",
		core.ErrProduction, cond.Index, cond.PromptParams, cond.Hypers, err)
}
