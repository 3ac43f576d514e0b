// Package logutil provides a small rate limiter for decode-path warnings.
//
// A corrupt file can produce one warning per scan across millions of scans;
// logging every occurrence floods the log without adding information.
package logutil

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Limiter suppresses repeated warnings: the first Burst occurrences log
// normally, afterwards only every Nth occurrence logs, with the running
// suppressed count attached.
type Limiter struct {
	count atomic.Uint64

	// Burst is the number of initial occurrences logged unconditionally.
	Burst uint64
	// Nth is the sampling interval once Burst is exhausted.
	Nth uint64
}

// NewLimiter creates a Limiter with the given burst and sampling interval.
func NewLimiter(burst, nth uint64) *Limiter {
	if burst == 0 {
		burst = 1
	}
	if nth == 0 {
		nth = 1
	}

	return &Limiter{Burst: burst, Nth: nth}
}

// Warn returns a warning event if this occurrence should be logged, or a
// disabled event otherwise. The total occurrence count so far is attached as
// "occurrences" once sampling kicks in.
func (l *Limiter) Warn(logger zerolog.Logger) *zerolog.Event {
	n := l.count.Add(1)
	if n <= l.Burst {
		return logger.Warn()
	}
	if (n-l.Burst)%l.Nth == 0 {
		return logger.Warn().Uint64("occurrences", n)
	}

	nop := zerolog.Nop()

	return nop.Warn()
}

// Count returns the number of occurrences observed so far.
func (l *Limiter) Count() uint64 {
	return l.count.Load()
}
