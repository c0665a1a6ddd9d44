package cachegate

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// breaker wraps an Origin with a circuit breaker so a failing upstream stops
// receiving new fetches for a cooldown window instead of every request
// paying its latency. Deliberately no retry policy is layered in: origin
// errors are reported exactly once rather than masked behind automatic
// retries.
type breaker struct {
	origin   Origin
	executor failsafe.Executor[*http.Response]
}

// newBreaker builds a breaker around origin, opening after consecutiveFail
// failures and staying open for cooldown before allowing a half-open probe.
func newBreaker(origin Origin, consecutiveFail uint, cooldown time.Duration) *breaker {
	cb := circuitbreaker.Builder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool { return err != nil }).
		WithFailureThreshold(consecutiveFail).
		WithDelay(cooldown).
		Build()
	return &breaker{
		origin:   origin,
		executor: failsafe.NewExecutor[*http.Response](cb),
	}
}

// Fetch implements Origin, running the wrapped origin's Fetch through the
// circuit breaker.
func (b *breaker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return b.executor.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		return b.origin.Fetch(ctx, req)
	})
}
