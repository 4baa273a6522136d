package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := New()
	c.ObserveClassification("cabeza")
	c.ObserveClassification("cabeza")
	c.ObserveChat("gemini", "demo", 10*time.Millisecond)
	c.SetActiveSessions(3)
	c.RecordHTTPRequest(http.MethodPost, "/api/v1/decoder", http.StatusOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Classifications.WithLabelValues("cabeza")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChatReplies.WithLabelValues("gemini", "demo")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ActiveSessions))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bioneuro_decoder_classifications_total")
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveClassification("x")
	c.ObserveChat("p", "ok", time.Second)
	c.SetActiveSessions(1)
	c.RecordHTTPRequest("GET", "/", 200, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
