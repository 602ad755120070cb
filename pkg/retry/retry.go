// Package retry implements capped exponential backoff for the background
// jobs that talk to stores which may be transiently unavailable.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	// ErrAttemptsExhausted reports that every allowed attempt failed
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
	// ErrCanceled reports that the context ended before an attempt succeeded
	ErrCanceled = errors.New("retry canceled by context")
)

// Config controls the backoff schedule. Zero values fall back to the
// defaults noted per field.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int
	// InitialInterval is the delay before the first retry (default 1s)
	InitialInterval time.Duration
	// MaxInterval caps the delay between retries (default 30s)
	MaxInterval time.Duration
	// Multiplier grows the delay after each failed attempt (default 2.0)
	Multiplier float64
	// JitterFactor spreads each delay by up to ±factor to keep
	// simultaneous workers from retrying in lockstep (clamped to [0, 1])
	JitterFactor float64
}

// DefaultConfig returns the schedule used when callers pass nil:
// 1s, 2s, 4s delays with ±10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

func (c *Config) normalized() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.InitialInterval <= 0 {
		out.InitialInterval = time.Second
	}
	if out.MaxInterval <= 0 {
		out.MaxInterval = 30 * time.Second
	}
	if out.Multiplier <= 0 {
		out.Multiplier = 2.0
	}
	if out.JitterFactor < 0 {
		out.JitterFactor = 0
	}
	if out.JitterFactor > 1 {
		out.JitterFactor = 1
	}
	return &out
}

// interval computes the delay before the retry following the given
// zero-based attempt
func (c *Config) interval(attempt int) time.Duration {
	d := float64(c.InitialInterval) * math.Pow(c.Multiplier, float64(attempt))
	if c.JitterFactor > 0 {
		d += d * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d > float64(c.MaxInterval) {
		d = float64(c.MaxInterval)
	}
	if d < 0 {
		d = float64(c.InitialInterval)
	}
	return time.Duration(d)
}

// Operation is the unit of work being retried
type Operation func(ctx context.Context) error

// Result describes how a Do call ended
type Result struct {
	// Err is nil on success, else ErrAttemptsExhausted or ErrCanceled
	Err error
	// Attempts is the total number of attempts made, the initial one included
	Attempts int
	// LastError is the error returned by the final failed attempt
	LastError error
}

// Do runs op until it succeeds, the schedule is exhausted or ctx ends.
// Waits happen between attempts, never after the last one.
func Do(ctx context.Context, config *Config, op Operation) *Result {
	cfg := config.normalized()
	result := &Result{}

	for attempt := 0; ; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrCanceled
			return result
		}

		err := op(ctx)
		if err == nil {
			return result
		}
		result.LastError = err

		if attempt == cfg.MaxRetries {
			result.Err = ErrAttemptsExhausted
			return result
		}

		select {
		case <-ctx.Done():
			result.Err = ErrCanceled
			return result
		case <-time.After(cfg.interval(attempt)):
		}
	}
}
