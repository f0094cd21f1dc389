package httpcache

import (
	"strconv"
	"sync/atomic"
)

// defaultRuntime is the built-in Runtime: ExchangeID is a monotonically
// increasing counter scoped to the process, Fork hands out a child sharing
// the counter but tagged with its own id. No pack library targets exchange
// correlation, so this is plain sync/atomic.
type defaultRuntime struct {
	counter *atomic.Uint64
	id      uint64
}

// exchangeCounter is the process-wide source of exchange ids.
var exchangeCounter atomic.Uint64

// NewRuntime returns a fresh root Runtime for a new incoming request.
func NewRuntime() Runtime {
	return &defaultRuntime{counter: &exchangeCounter, id: exchangeCounter.Add(1)}
}

func (r *defaultRuntime) ExchangeID() string {
	return strconv.FormatUint(r.id, 10)
}

func (r *defaultRuntime) Fork() Runtime {
	return &defaultRuntime{counter: r.counter, id: r.counter.Add(1)}
}
