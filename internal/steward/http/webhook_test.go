package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	stewardhttp "github.com/aussiebroadwan/steward/internal/steward/http"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/memory"
	"github.com/aussiebroadwan/steward/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []domain.Payload
}

func (d *recordingDispatcher) Dispatch(_ context.Context, p domain.Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
}

func newTestRouter(t *testing.T, st store.Store) (*stewardhttp.Router, *recordingDispatcher) {
	t.Helper()
	if st == nil {
		st = memory.NewStore()
	}
	d := &recordingDispatcher{}
	r := stewardhttp.NewRouter("s3cret", "test", st, d, slogx.Discard())
	r.ApplyRoutes()
	return r, d
}

func TestWebhookHandshake(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	t.Run("echoes challenge", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=12345", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "12345", rec.Body.String())
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.NotContains(t, rec.Body.String(), "12345")
	})

	t.Run("rejects wrong mode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=s3cret", nil)
		req.RemoteAddr = "192.0.2.11:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestWebhookEventDispatches(t *testing.T) {
	r, d := newTestRouter(t, nil)

	body := `{"object":"workplace_security","entry":[{"time":1000,"changes":[{"field":"sessions","value":{"event":"LOG_IN","target_id":"U1"}}]}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.payloads, 1)
	require.Equal(t, domain.ObjectWorkplaceSecurity, d.payloads[0].Object)
	require.EqualValues(t, 1000, d.payloads[0].Entry[0].Time)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWebhookMalformedBodyIsAcknowledged(t *testing.T) {
	r, d := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, d.payloads)
}

func TestWebhookOversizedBodyIsAcknowledged(t *testing.T) {
	r, d := newTestRouter(t, nil)

	big := `{"object":"page","entry":[],"pad":"` + strings.Repeat("x", stewardhttp.MaxWebhookBody) + `"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(big)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, d.payloads)
}

type failingStore struct{ *memory.Store }

func (failingStore) Ping(context.Context) error { return errors.New("database is locked") }

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health stewardhttp.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)
	require.Equal(t, "ok", health.Checks.Ledger)

	degraded, _ := newTestRouter(t, failingStore{memory.NewStore()})
	rec = httptest.NewRecorder()
	degraded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "database is locked")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
