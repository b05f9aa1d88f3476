package imagery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testPolygon(t *testing.T) *geometry.FieldPolygon {
	t.Helper()
	polygon, err := geometry.NewFieldPolygon([][]float64{
		{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0},
	})
	require.NoError(t, err)
	return polygon
}

func sentinelEnv(t *testing.T, tokenURL string) {
	t.Helper()
	t.Setenv("SENTINEL_CLIENT_ID", "client")
	t.Setenv("SENTINEL_CLIENT_SECRET", "secret")
	t.Setenv("SENTINEL_TOKEN_URL", tokenURL)
}

func TestRequestImageRetriesWithoutTrailingBackoff(t *testing.T) {
	sentinelEnv(t, tokenServer(t).URL)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	backoff := retryBackoff
	retryBackoff = 50 * time.Millisecond
	defer func() { retryBackoff = backoff }()

	f := &Fetcher{log: quietLogger(), processURL: server.URL}

	start := time.Now()
	_, err := f.requestImage(context.Background(), testPolygon(t), time.Now().AddDate(0, 0, -14), time.Now())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, requestRetries, attempts)
	// Backoff runs between attempts only, never after the last one.
	assert.Less(t, elapsed, 3*retryBackoff)
}

func TestRequestImageUnauthorizedFailsFast(t *testing.T) {
	sentinelEnv(t, tokenServer(t).URL)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	f := &Fetcher{log: quietLogger(), processURL: server.URL}

	_, err := f.requestImage(context.Background(), testPolygon(t), time.Now().AddDate(0, 0, -14), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Equal(t, 1, attempts, "auth failures are not retried")
}

func TestRequestImageMissingCredentials(t *testing.T) {
	t.Setenv("SENTINEL_CLIENT_ID", "")
	t.Setenv("SENTINEL_CLIENT_SECRET", "")
	t.Setenv("SENTINEL_TOKEN_URL", "")

	f := &Fetcher{log: quietLogger(), processURL: defaultProcessURL}

	_, err := f.requestImage(context.Background(), testPolygon(t), time.Now().AddDate(0, 0, -14), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
}

func TestCalculatePixels(t *testing.T) {
	assert.Equal(t, 1, calculatePixels(0), "degenerate extents still request one pixel")
	assert.Equal(t, 111, calculatePixels(0.01))
	assert.Equal(t, maxOutputPixels, calculatePixels(10), "output is capped")
}
