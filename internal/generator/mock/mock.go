// Package mock provides a test double for the generator.Generator interface.
//
// Use Generator in unit tests to check the prompt and decoding policy a stage
// sends and to feed controlled outputs without a model. Fields may be set
// before the first call; mutating them during a concurrent call is the
// caller's responsibility.
package mock

import (
	"context"
	"sync"

	"gramfix/internal/generator"
)

// Call records a single invocation of Generate.
type Call struct {
	Prompt string
	Config generator.DecodingConfig
}

// Generator is a mock implementation of generator.Generator.
type Generator struct {
	mu sync.Mutex

	// Output is returned when Respond is nil.
	Output string
	// Err, if non-nil, is returned from every call.
	Err error
	// Respond computes the output from the prompt when set.
	Respond func(prompt string) string
	// Panic, if non-nil, is raised from every call.
	Panic any

	// Calls records every invocation in order.
	Calls []Call
}

// Generate records the call and returns the configured response.
func (g *Generator) Generate(ctx context.Context, prompt string, cfg generator.DecodingConfig) (string, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, Call{Prompt: prompt, Config: cfg})
	out, err, respond, p := g.Output, g.Err, g.Respond, g.Panic
	g.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(prompt), nil
	}
	return out, nil
}

// CallCount returns the number of recorded calls.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// LastCall returns the most recent call, if any.
func (g *Generator) LastCall() (Call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Calls) == 0 {
		return Call{}, false
	}
	return g.Calls[len(g.Calls)-1], true
}
