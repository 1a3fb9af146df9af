package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/test", "/notfound"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "200")); val != 1 {
		t.Errorf("Expected requests for GET /test to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "404")); val != 1 {
		t.Errorf("Expected requests for GET /notfound to be 1, got %f", val)
	}
	if val := testutil.CollectAndCount(m.httpRequestDurationSeconds); val != 2 {
		t.Errorf("Expected two route series, got %d", val)
	}
}

func TestMiddlewareWithoutRouter(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if val := testutil.CollectAndCount(m.httpRequestDurationSeconds); val != 1 {
		t.Errorf("Expected one unknown route series, got %d", val)
	}
	if val := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "418")); val != 1 {
		t.Errorf("Expected teapot request to be counted, got %f", val)
	}
}
