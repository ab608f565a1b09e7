package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithoutDSNIsNoop(t *testing.T) {
	flush, err := Init(Config{}, nil)
	require.NoError(t, err)
	require.NotPanics(t, flush)
}

func TestCaptureErrorWithoutClient(t *testing.T) {
	require.NotPanics(t, func() {
		CaptureError(context.Background(), errors.New("boom"), map[string]string{"agent": "scoring_agent"})
		CaptureError(context.Background(), nil, nil)
	})
}

func TestMiddlewarePassesThrough(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}
