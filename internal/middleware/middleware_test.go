package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("logs status of first WriteHeader", func(t *testing.T) {
		buf.Reset()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/billing/cycles", nil))
		assert.Contains(t, buf.String(), `"status":418`)
		assert.Contains(t, buf.String(), `"path":"/v1/billing/cycles"`)
	})

	t.Run("probes are below info", func(t *testing.T) {
		buf.Reset()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, buf.String())
	})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/v1/invoices/{id}/document", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/invoices/{id}/document", "404"))
	errorsBefore := testutil.ToFloat64(httpErrorsTotal.WithLabelValues("client_error"))

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/550e8400-e29b-41d4-a716-446655440000/document", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/invoices/{id}/document", "404")))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(httpErrorsTotal.WithLabelValues("client_error")))
}

func TestNormalizePath_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/550e8400-e29b-41d4-a716-446655440000/document", nil)
	assert.Equal(t, "/v1/invoices/{id}/document", normalizePath(req))
}

func TestCompress(t *testing.T) {
	mw, err := Compress()
	require.NoError(t, err)

	body := strings.Repeat(`{"invoice_number":"INV-202603-0042"},`, 100)
	serve := func(contentType string) *httptest.ResponseRecorder {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Write([]byte(body))
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("json is gzipped", func(t *testing.T) {
		rec := serve("application/json")
		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		assert.Less(t, rec.Body.Len(), len(body))
	})

	t.Run("pdf passes through", func(t *testing.T) {
		rec := serve("application/pdf")
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})
}

func TestCORS(t *testing.T) {
	h := CORS("https://billing.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/billing/cycles", nil)
	req.Header.Set("Origin", "https://billing.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://billing.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
