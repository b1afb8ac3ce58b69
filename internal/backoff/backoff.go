// internal/backoff/backoff.go
package backoff

import (
	"time"

	"github.com/avast/retry-go/v4"
)

// Defaults used when a Policy field is left zero.
const (
	DefaultInitial = 1 * time.Second
	DefaultMax     = 30 * time.Second
)

// Policy is a capped doubling delay: Initial, 2*Initial, 4*Initial ... Max.
// It holds no state; the attempt number is supplied by the caller.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
}

// Normalized returns p with zero fields replaced by defaults
// and Max raised to Initial if it was configured lower.
func (p Policy) Normalized() Policy {
	if p.Initial <= 0 {
		p.Initial = DefaultInitial
	}
	if p.Max <= 0 {
		p.Max = DefaultMax
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	return p
}

// Delay returns the wait before reconnect attempt n (1-based).
// Values of n below 1 are treated as 1.
func (p Policy) Delay(n uint) time.Duration {
	p = p.Normalized()
	if n < 1 {
		n = 1
	}

	d := p.Initial
	for i := uint(1); i < n; i++ {
		// stop doubling once the cap is reached; also guards overflow
		if d >= p.Max/2 {
			return p.Max
		}
		d *= 2
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// DelayType adapts the policy to retry-go.
func (p Policy) DelayType() retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		return p.Delay(n)
	}
}
