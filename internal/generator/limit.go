package generator

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

type limited struct {
	gen Generator
	sem *semaphore.Weighted
}

// Limit allows at most n concurrent Generate calls on gen; further callers
// wait their turn or give up when their context ends. n <= 0 returns gen as is.
func Limit(gen Generator, n int) Generator {
	if n <= 0 {
		return gen
	}
	return &limited{gen: gen, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limited) Generate(ctx context.Context, prompt string, cfg DecodingConfig) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("generator: wait for a free slot: %w", err)
	}
	defer l.sem.Release(1)
	return l.gen.Generate(ctx, prompt, cfg)
}
