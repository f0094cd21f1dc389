package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/relaycache/httpcache"
	ourmetrics "github.com/relaycache/httpcache/metrics"
)

// InstrumentedTransport wraps an httpcache.Engine with Prometheus metrics,
// grounded on the teacher's InstrumentedTransport (wrapper/metrics/prometheus
// in the original layout) but calling Engine.Execute directly instead of
// RoundTrip, so it can read the exchange's cache_response_status attribute
// off the Scope rather than inferring it from a response header.
type InstrumentedTransport struct {
	engine     *httpcache.Engine
	downstream http.RoundTripper
	collector  ourmetrics.Collector
}

// NewInstrumentedTransport wraps engine, dispatching cache misses and
// revalidations to downstream (http.DefaultTransport if nil) and recording
// every exchange against collector (metrics.DefaultCollector if nil).
func NewInstrumentedTransport(engine *httpcache.Engine, downstream http.RoundTripper, collector ourmetrics.Collector) *InstrumentedTransport {
	if downstream == nil {
		downstream = http.DefaultTransport
	}
	if collector == nil {
		collector = ourmetrics.DefaultCollector
	}

	return &InstrumentedTransport{
		engine:     engine,
		downstream: downstream,
		collector:  collector,
	}
}

// RoundTrip executes req through the wrapped engine, recording the
// exchange's outcome once it completes.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	scope := httpcache.NewScope(req.URL.Path, req, httpcache.NewRuntime())

	start := time.Now()
	resp, err := t.engine.Execute(req, scope, httpcache.RoundTripperChain(t.downstream))
	duration := time.Since(start)
	if err != nil {
		return resp, err
	}

	status := string(httpcache.StatusMiss)
	if s, ok := scope.Attributes.ResponseStatus(); ok {
		status = string(s)
	}

	t.collector.RecordExchange(req.Method, status, resp.StatusCode, duration)

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			t.collector.RecordResponseSize(status, size)
		}
	}

	return resp, nil
}

// Client returns an *http.Client using this instrumented transport.
func (t *InstrumentedTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

var _ http.RoundTripper = (*InstrumentedTransport)(nil)
