package hooks

import (
	"fmt"

	"github.com/conduit-lang/docapi/internal/verb"
	"go.uber.org/zap"
)

// Run passes value through the taps of (hook, v) in registration order and
// returns the final value. Each tap finishes before the next one starts: an
// awaited tap suspends the chain until its outcome arrives or ctx is done.
// The first failure stops the chain.
func (r *Registry) Run(ctx *Context, hook Hook, v verb.Verb, value any) (any, error) {
	taps := r.Taps(hook, v)
	if len(taps) == 0 {
		return value, nil
	}

	hctx := ctx.at(hook)

	for i, tap := range taps {
		res := tap(hctx, value)

		switch res.kind {
		case resultContinue:
			value = res.value

		case resultAwait:
			select {
			case out, ok := <-res.pending:
				if !ok {
					return nil, fmt.Errorf("hook %s::%s tap %d: %w", hook, v, i, ErrAbandoned)
				}
				if out.Err != nil {
					return nil, fmt.Errorf("hook %s::%s failed: %w", hook, v, out.Err)
				}
				value = out.Value
			case <-ctx.Done():
				return nil, fmt.Errorf("hook %s::%s interrupted: %w", hook, v, ctx.Err())
			}

		case resultFail:
			return nil, fmt.Errorf("hook %s::%s failed: %w", hook, v, res.err)

		default:
			hctx.Logger().Error("tap returned no result",
				zap.String("hook", hook.String()),
				zap.String("verb", v.String()),
				zap.Int("index", i),
			)
			return nil, fmt.Errorf("hook %s::%s tap %d: %w", hook, v, i, ErrNoResult)
		}
	}

	return value, nil
}
