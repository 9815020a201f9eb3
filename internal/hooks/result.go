package hooks

type resultKind uint8

const (
	resultNone resultKind = iota
	resultContinue
	resultAwait
	resultFail
)

// Outcome is delivered on the channel of an awaited Result
type Outcome struct {
	Value any
	Err   error
}

// Result tells the chain what a tap decided. Build one with Continue, Await,
// Async or Fail; the zero Result is rejected with ErrNoResult.
type Result struct {
	kind    resultKind
	value   any
	pending <-chan Outcome
	err     error
}

// Continue proceeds immediately with value, which may be nil
func Continue(value any) Result {
	return Result{kind: resultContinue, value: value}
}

// Await suspends the chain until ch delivers an Outcome. The chain stops with
// the outcome's error if it has one.
func Await(ch <-chan Outcome) Result {
	if ch == nil {
		return Result{}
	}
	return Result{kind: resultAwait, pending: ch}
}

// Async runs fn on its own goroutine and awaits its result
func Async(fn func() (any, error)) Result {
	ch := make(chan Outcome, 1)
	go func() {
		v, err := fn()
		ch <- Outcome{Value: v, Err: err}
	}()
	return Await(ch)
}

// Fail stops the chain with err
func Fail(err error) Result {
	if err == nil {
		return Result{}
	}
	return Result{kind: resultFail, err: err}
}

// IsZero reports whether r was not built by one of the constructors
func (r Result) IsZero() bool {
	return r.kind == resultNone
}
