package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(Check{Component: "database", Pinger: pingFunc(func(context.Context) error {
		return errors.New("down")
	})})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("Body = %s", rec.Body.String())
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name           string
		checks         []Check
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all dependencies up",
			checks:         []Check{{"database", ok}, {"redis", ok}},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
		{
			name:           "database down",
			checks:         []Check{{"database", down}, {"redis", ok}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"error","component":"database"}`,
		},
		{
			name:           "redis down",
			checks:         []Check{{"database", ok}, {"redis", down}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"error","component":"redis"}`,
		},
		{
			name:           "no checks configured",
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks...)

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if rec.Body.String() != tt.expectedBody {
				t.Errorf("Body = %s, want %s", rec.Body.String(), tt.expectedBody)
			}
		})
	}
}
