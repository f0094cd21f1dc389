package prometheus

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/relaycache/httpcache"
	"github.com/relaycache/httpcache/store"
	"github.com/relaycache/httpcache/store/memstore"
)

func TestInstrumentedTransportRecordsHitAndMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		fmt.Fprintf(w, "body for %s", r.URL.Path)
	}))
	defer server.Close()

	engine := httpcache.NewEngine(store.NewKeyedStore(memstore.New()))
	registry := prometheus.NewRegistry()
	collector := NewCollectorWithRegistry(registry)
	it := NewInstrumentedTransport(engine, server.Client().Transport, collector)
	client := it.Client()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/a", nil)
	resp1, err := client.Do(req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp1.Body.Close()

	req2, _ := http.NewRequest(http.MethodGet, server.URL+"/a", nil)
	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	resp2.Body.Close()

	expected := `
		# HELP httpcache_exchanges_total Total number of engine.Execute exchanges
		# TYPE httpcache_exchanges_total counter
		httpcache_exchanges_total{cache_response_status="cache_hit",method="GET",status_code="200"} 1
		httpcache_exchanges_total{cache_response_status="cache_miss",method="GET",status_code="200"} 1
	`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "httpcache_exchanges_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}
