package httpcache

import "time"

// Clock is the monotonic wall-time source used for age computations
// (spec.md component A). Tests substitute a fake to control elapsed time
// deterministically.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default production Clock.
var SystemClock Clock = systemClock{}
