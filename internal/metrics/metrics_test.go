package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveBeforeInitIsSafe(t *testing.T) {
	// collectors are nil until Init; observations must not panic
	ObserveLookup("http", "dom", true, time.Second)
	ObserveFetch("http", 200)
	ObserveRun("succeeded")
	ObserveHTTPRequest(http.MethodGet, "/healthz", 200, time.Millisecond)
}

func TestInitAndHandler(t *testing.T) {
	Init()
	Init()

	ObserveLookup("http", "jsonld_breadcrumb", true, 2*time.Second)
	ObserveLookup("headless", "dom", false, 5*time.Second)
	ObserveFetch("http", 403)
	ObserveRun("succeeded")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "catalogcheck_lookups_total")
	require.Contains(t, body, "catalogcheck_fetches_total")
	require.Contains(t, body, "catalogcheck_runs_total")
}
