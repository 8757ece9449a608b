// Package judge asks an external text-classification oracle whether guesses
// match a reference answer. Everything past this package sees only
// validated, order-preserving Verdicts.
package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/drawguess/logger"
	"go.uber.org/multierr"
)

var (
	ErrEmptyInput     = errors.New("no guesses to judge")
	ErrMalformed      = errors.New("malformed oracle response")
	ErrJudgmentFailed = errors.New("judgment failed")
)

// Verdict is the judgment for the guess at the same position in the input.
type Verdict struct {
	Guess     string `json:"guess"`
	IsCorrect bool   `json:"is_correct"`
	Reason    string `json:"reason"`
}

// Completer sends one prompt to the oracle and returns its raw text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ExhaustedError is returned once every attempt failed. It matches
// ErrJudgmentFailed and the last underlying failure with errors.Is.
type ExhaustedError struct {
	Attempts int
	Last     error
	// every attempt's failure, combined
	History error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrJudgmentFailed, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrJudgmentFailed, e.Last}
}

type Client struct {
	completer   Completer
	MaxRetries  int
	BackoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewClient(completer Completer, maxRetries int, backoffBase time.Duration) *Client {
	return &Client{
		completer:   completer,
		MaxRetries:  maxRetries,
		BackoffBase: backoffBase,
		sleep:       sleepContext,
	}
}

// Judge uses the client's configured retry bound.
func (c *Client) Judge(ctx context.Context, reference string, guesses []string) ([]Verdict, error) {
	return c.JudgeWithRetries(ctx, reference, guesses, c.MaxRetries)
}

// JudgeWithRetries makes up to maxRetries attempts (at least one). Attempt i
// failing waits BackoffBase*2^i before the next one.
func (c *Client) JudgeWithRetries(ctx context.Context, reference string, guesses []string, maxRetries int) ([]Verdict, error) {
	if len(guesses) == 0 {
		return nil, ErrEmptyInput
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	prompt, err := BuildPrompt(reference, guesses)
	if err != nil {
		return nil, err
	}

	var history, last error
	for attempt := 0; attempt < maxRetries; attempt++ {
		verdicts, err := c.attempt(ctx, prompt, guesses)
		if err == nil {
			return verdicts, nil
		}

		last = err
		history = multierr.Append(history, fmt.Errorf("attempt %d: %w", attempt+1, err))
		logger.Log.Warnf("Judgment attempt %d/%d failed: %v", attempt+1, maxRetries, err)

		if attempt == maxRetries-1 {
			break
		}
		if err := c.sleep(ctx, c.BackoffBase<<attempt); err != nil {
			last = err
			history = multierr.Append(history, err)
			return nil, &ExhaustedError{Attempts: attempt + 1, Last: last, History: history}
		}
	}

	return nil, &ExhaustedError{Attempts: maxRetries, Last: last, History: history}
}

func (c *Client) attempt(ctx context.Context, prompt string, guesses []string) ([]Verdict, error) {
	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseVerdicts(raw, guesses)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
