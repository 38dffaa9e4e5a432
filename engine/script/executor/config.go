package executor

import (
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
)

// Config holds the execution budgets for one Executor.
type Config struct {
	// Concurrency bounds how many parallel-map items run at once.
	Concurrency int `validate:"min=1,max=64"`
	// Timeout is the wall-clock budget for one script invocation.
	Timeout time.Duration `validate:"min=1ms"`
	// MaxIterations caps the total loop iterations per invocation.
	MaxIterations int `validate:"min=1"`
	// MaxCallStackSize bounds recursion depth inside the runtime.
	MaxCallStackSize int `validate:"min=64"`
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithConcurrency sets the parallel-map concurrency limit.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		e.config.Concurrency = n
	}
}

// WithTimeout sets the per-invocation wall-clock budget.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.config.Timeout = timeout
	}
}

// WithMaxIterations sets the per-invocation loop iteration cap.
func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		e.config.MaxIterations = n
	}
}

// WithMaxCallStackSize sets the runtime recursion limit.
func WithMaxCallStackSize(n int) Option {
	return func(e *Executor) {
		e.config.MaxCallStackSize = n
	}
}

// WithLLM sets the text-generation capability exposed to scripts as llm().
func WithLLM(fn LLMFunc) Option {
	return func(e *Executor) {
		e.llm = fn
	}
}

// WithStore attaches a caller-owned session store shared across invocations.
func WithStore(store *SessionStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

// WithOutputBuffer attaches a caller-owned output buffer shared across
// invocations.
func WithOutputBuffer(buf *OutputBuffer) Option {
	return func(e *Executor) {
		e.output = buf
	}
}

// WithTestConfig applies short budgets suitable for tests.
func WithTestConfig() Option {
	return func(e *Executor) {
		*e.config = *TestConfig()
	}
}

// DefaultConfig returns the production budgets.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:      3,
		Timeout:          2 * time.Minute,
		MaxIterations:    5000,
		MaxCallStackSize: 500,
	}
}

// TestConfig returns budgets small enough to trip quickly in tests.
func TestConfig() *Config {
	return &Config{
		Concurrency:      2,
		Timeout:          5 * time.Second,
		MaxIterations:    200,
		MaxCallStackSize: 256,
	}
}

// Validate checks the configured budgets.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid executor config: %w", err)
	}
	return nil
}

// applyDefaults fills unset fields from DefaultConfig.
func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, DefaultConfig()); err != nil {
		return fmt.Errorf("merge default config: %w", err)
	}
	return nil
}
