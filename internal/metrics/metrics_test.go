package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/sites/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/sites/{id}", "202"))
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sites/"+id, nil))
	}
	assert.InDelta(t, before+3, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/sites/{id}", "202")), 1e-9)

	plain := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/plain", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.InDelta(t, plain+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/plain", "200")), 1e-9)
}

func TestMiddleware_OutsideRouter(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "unmatched", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.InDelta(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "unmatched", "200")), 1e-9)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	GeocodeRequestsTotal.WithLabelValues("ok").Add(0)
	SearchResponsesTotal.WithLabelValues("stale").Add(0)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "siteopt_geocode_requests_total")
	assert.Contains(t, body, "siteopt_search_responses_total")
	assert.Contains(t, body, "siteopt_search_queries_issued_total")
}
