package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"promptlab/adapters/rng"
	"promptlab/domain/core"
	"promptlab/domain/design"
	"promptlab/domain/space"
	"promptlab/domain/template"
	"promptlab/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenConditionDesign builds a 5x2 full factorial: 10 conditions in a known order.
func tenConditionDesign(t *testing.T) *design.Design {
	t.Helper()
	d, err := design.New(design.Config{
		Template: template.New("Write about {topic}"),
		PromptSpace: space.MustNew(
			space.Param{Name: "topic", Candidates: []space.Value{"t0", "t1", "t2", "t3", "t4"}},
		),
		PromptStrategy: design.Exhaustive(),
		HyperSpace: space.MustNew(
			space.Param{Name: "temperature", Candidates: []space.Value{0.2, 0.8}},
		),
		HyperStrategy: design.Exhaustive(),
		Seed:          42,
	})
	require.NoError(t, err)
	return d
}

// echoProducer returns a deterministic output per condition.
func echoProducer() ports.Producer {
	return ports.ProducerFunc(func(ctx context.Context, prompt string, hypers space.Binding) (string, error) {
		return fmt.Sprintf("%s | %s", prompt, hypers), nil
	})
}

// failAtProducer fails exactly on the given sequential call number (0-based).
func failAtProducer(failAt int) ports.Producer {
	var mu sync.Mutex
	calls := 0
	return ports.ProducerFunc(func(ctx context.Context, prompt string, hypers space.Binding) (string, error) {
		mu.Lock()
		call := calls
		calls++
		mu.Unlock()
		if call == failAt {
			return "", errors.New("rate limit exceeded")
		}
		return "ok", nil
	})
}

// fakeRecordRepo is an in-memory RecordRepository.
type fakeRecordRepo struct {
	mu      sync.Mutex
	runs    map[core.RunID]ports.RunMeta
	records map[core.RunID][]design.Record
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		runs:    make(map[core.RunID]ports.RunMeta),
		records: make(map[core.RunID][]design.Record),
	}
}

func (f *fakeRecordRepo) CreateRun(ctx context.Context, meta ports.RunMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[meta.ID] = meta
	return nil
}

func (f *fakeRecordRepo) AppendRecords(ctx context.Context, runID core.RunID, records []design.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[runID] = append(f.records[runID], records...)
	return nil
}

func (f *fakeRecordRepo) GetRun(ctx context.Context, runID core.RunID) (*ports.RunMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.runs[runID]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return &meta, nil
}

func (f *fakeRecordRepo) GetRecords(ctx context.Context, runID core.RunID) ([]design.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[runID], nil
}

func (f *fakeRecordRepo) ListRuns(ctx context.Context, limit, offset int) ([]ports.RunMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var metas []ports.RunMeta
	for _, meta := range f.runs {
		metas = append(metas, meta)
	}
	return metas, nil
}

func newService(producer ports.Producer, repo ports.RecordRepository) *ExperimentService {
	return NewExperimentService(producer, rng.New(), repo, nil)
}

func TestRun_AllConditionsProduced(t *testing.T) {
	d := tenConditionDesign(t)
	svc := newService(echoProducer(), nil)

	result, err := svc.Run(context.Background(), d, RunOptions{OnError: FailFast})
	require.NoError(t, err)
	assert.Len(t, result.Records, 10)
	assert.Empty(t, result.Failures)
	assert.Equal(t, design.PolicyFullFactorial, result.Policy)

	// First record comes from the first odometer pair.
	assert.Equal(t, "Write about t0", result.Records[0][design.ColPrompt])
	assert.Equal(t, "t0", result.Records[0]["param_topic"])
	assert.Equal(t, 0.2, result.Records[0]["hyper_temperature"])
}

func TestRun_FailFastAbortsOnCondition7(t *testing.T) {
	d := tenConditionDesign(t)
	svc := newService(failAtProducer(7), nil)

	result, err := svc.Run(context.Background(), d, RunOptions{OnError: FailFast})
	require.Error(t, err)
	assert.Nil(t, result, "fail-fast must not return partial records")
	assert.True(t, core.IsProductionError(err))
	// The error names the failing condition's index and bindings.
	assert.Contains(t, err.Error(), "condition 7")
	assert.Contains(t, err.Error(), "topic=t3")
}

func TestRun_CollectErrorsContinues(t *testing.T) {
	d := tenConditionDesign(t)
	svc := newService(failAtProducer(7), nil)

	result, err := svc.Run(context.Background(), d, RunOptions{OnError: CollectErrors})
	require.NoError(t, err)
	assert.Len(t, result.Records, 9)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 7, result.Failures[0].Index)
	assert.Contains(t, result.Failures[0].Err, "rate limit")
}

func TestRun_ParallelPreservesRecordOrder(t *testing.T) {
	d := tenConditionDesign(t)

	sequential, err := newService(echoProducer(), nil).Run(context.Background(), d, RunOptions{OnError: FailFast})
	require.NoError(t, err)
	parallel, err := newService(echoProducer(), nil).Run(context.Background(), d, RunOptions{OnError: FailFast, Parallelism: 4})
	require.NoError(t, err)

	require.Len(t, parallel.Records, len(sequential.Records))
	for i := range sequential.Records {
		assert.Equal(t, sequential.Records[i], parallel.Records[i], "record %d", i)
	}
}

func TestRun_SameSeedSameRecords(t *testing.T) {
	build := func() *design.Design {
		d, err := design.New(design.Config{
			Template: template.New("Write about {topic}"),
			PromptSpace: space.MustNew(
				space.Param{Name: "topic", Candidates: []space.Value{"a", "b", "c"}},
			),
			PromptStrategy: design.Exhaustive(),
			HyperSpace: space.MustNew(
				space.Param{Name: "temperature", Candidates: []space.Value{0.0, 0.5, 1.0}},
			),
			HyperStrategy: design.Random(5),
			Seed:          42,
		})
		require.NoError(t, err)
		return d
	}

	first, err := newService(echoProducer(), nil).Run(context.Background(), build(), RunOptions{OnError: FailFast})
	require.NoError(t, err)
	second, err := newService(echoProducer(), nil).Run(context.Background(), build(), RunOptions{OnError: FailFast})
	require.NoError(t, err)

	require.Len(t, first.Records, 15)
	for i := range first.Records {
		assert.Equal(t, first.Records[i], second.Records[i], "record %d", i)
	}
}

func TestRun_Persists(t *testing.T) {
	d := tenConditionDesign(t)
	repo := newFakeRecordRepo()
	svc := newService(echoProducer(), repo)

	result, err := svc.Run(context.Background(), d, RunOptions{OnError: FailFast, Persist: true})
	require.NoError(t, err)

	meta, err := repo.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 10, meta.Conditions)
	assert.Equal(t, 0, meta.Failed)
	assert.Equal(t, d.Columns(), meta.Columns)

	stored, err := repo.GetRecords(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

func TestRun_RejectsUnknownErrorPolicy(t *testing.T) {
	d := tenConditionDesign(t)
	svc := newService(echoProducer(), nil)

	_, err := svc.Run(context.Background(), d, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error policy")
}

func TestRun_ContextCancelled(t *testing.T) {
	d := tenConditionDesign(t)
	svc := newService(echoProducer(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, d, RunOptions{OnError: FailFast})
	require.ErrorIs(t, err, context.Canceled)
}
