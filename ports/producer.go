package ports

import (
	"context"

	"promptlab/domain/space"
)

// Producer is the injected unit of work executed once per condition: it
// turns a rendered prompt plus one hyperparameter binding into an outcome.
// In the surrounding system this is a language-model completion call; the
// engine only requires a possibly-failing operation. Retry, rate limiting,
// and caching are the producer's responsibility and stay opaque to the
// engine, which sees either a successful string result or an error.
type Producer interface {
	Produce(ctx context.Context, prompt string, hypers space.Binding) (string, error)
}

// ProducerFunc adapts a plain function to the Producer interface.
type ProducerFunc func(ctx context.Context, prompt string, hypers space.Binding) (string, error)

func (f ProducerFunc) Produce(ctx context.Context, prompt string, hypers space.Binding) (string, error) {
	return f(ctx, prompt, hypers)
}
