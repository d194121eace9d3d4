package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

// ErrAllFailed is wrapped by Chain.Run when no strategy produced output.
var ErrAllFailed = errors.New("all encoding strategies failed")

// Logger is the subset of the application logger the chain reports to.
type Logger interface {
	Debug(verbose bool, format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// Chain tries Strategies in order until one succeeds.
type Chain struct {
	Strategies []Strategy
	Runner     Runner
	Log        Logger
	Verbose    bool
}

// NewChain returns a chain over strategies using the os/exec runner.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{Strategies: strategies, Runner: ExecRunner{}}
}

// Run encodes in to out. out is removed after every failed attempt so the
// next strategy starts clean and a failed chain leaves nothing behind. It
// returns the name of the strategy that succeeded.
func (c *Chain) Run(ctx context.Context, in, out string) (string, error) {
	if len(c.Strategies) == 0 {
		return "", fmt.Errorf("%w: no strategies configured", ErrAllFailed)
	}
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	var errs *multierror.Error
	for i, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			_ = os.Remove(out)
			return "", err
		}
		c.debug("[%d/%d] %s %s -> %s", i+1, len(c.Strategies), s.Name, in, out)

		res := runner.Run(ctx, s.Tool, s.Args(in, out))
		if res.Err == nil {
			if fi, err := os.Stat(out); err == nil && fi.Size() > 0 {
				return s.Name, nil
			}
			res.Err = errors.New("no output produced")
		}
		_ = os.Remove(out)

		kind := Classify(res)
		if ctx.Err() != nil {
			kind = FailureCancelled
		}
		serr := &StrategyError{Strategy: s.Name, Kind: kind, Stderr: res.Stderr, Err: res.Err}
		errs = multierror.Append(errs, serr)
		if kind == FailureCancelled {
			return "", ctx.Err()
		}
		if c.Log != nil && i+1 < len(c.Strategies) {
			c.Log.Warn("%s failed (%s), trying next strategy", s.Name, kind)
		}
	}
	return "", fmt.Errorf("%w: %w", ErrAllFailed, errs.ErrorOrNil())
}

func (c *Chain) debug(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Debug(c.Verbose, format, args...)
	}
}
