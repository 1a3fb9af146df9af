package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestObserveRateLimitDelay(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRateLimitDelay("https://www.KissThisGuy.com/A-artists.htm", 2*time.Second)
	m.ObserveRateLimitDelay("www.kissthisguy.com", time.Second)

	assert.Equal(t, 1, testutil.CollectAndCount(m.rateLimitDelaysSeconds))
}

func TestInstrumentTransport(t *testing.T) {
	m := New(prometheus.NewRegistry())

	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodPost, "http://ingest.local/lyrics",
		httpmock.NewStringResponder(http.StatusCreated, `{"id": 1}`))
	mock.RegisterResponder(http.MethodPost, "http://ingest.local/bad",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error": "x"}`))

	client := &http.Client{Transport: m.InstrumentTransport(mock)}
	for _, path := range []string{"/lyrics", "/lyrics", "/bad"} {
		resp, err := client.Post("http://ingest.local"+path, "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestRequestsTotal.WithLabelValues("post", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRequestsTotal.WithLabelValues("post", "400")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ingestInFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ingestDurationSeconds))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
