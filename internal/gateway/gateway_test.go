package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/session"
	"github.com/bobmcallan/tradeclient/internal/storage/kvstore"
)

type recorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *recorder) add(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, h.Clone())
}

func (r *recorder) last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1]
}

func newBackend(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ledger/balance", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"token expired"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"available_balance": 1000}`))
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	})
	mux.HandleFunc("/market/quote/BOOM", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"bad order"}`))
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		_ = r.ParseForm()
		json.NewEncoder(w).Encode(map[string]string{
			"content_type": r.Header.Get("Content-Type"),
			"username":     r.PostForm.Get("username"),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSession(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(kvstore.NewMemoryStore(), common.NewSilentLogger())
}

func TestGateway_BearerHeaderFollowsSession(t *testing.T) {
	rec := &recorder{}
	srv := newBackend(t, rec)
	sess := newTestSession(t)
	g := New(srv.URL, sess, WithRateLimit(0))
	ctx := context.Background()

	var out map[string]any
	err := g.Get(ctx, "/ledger/balance", &out)
	require.Error(t, err)
	assert.Empty(t, rec.last().Get("Authorization"), "no token means no bearer header")

	require.NoError(t, sess.SetAccessToken(ctx, "x"))
	_ = g.Get(ctx, "/ledger/balance", &out)
	assert.Equal(t, "Bearer x", rec.last().Get("Authorization"))

	require.NoError(t, sess.SetAccessToken(ctx, "good"))
	require.NoError(t, g.Get(ctx, "/ledger/balance", &out))
	assert.Equal(t, float64(1000), out["available_balance"])

	assert.NotEmpty(t, rec.last().Get("X-Request-ID"))
	assert.Equal(t, "application/json", rec.last().Get("Accept"))
}

func TestGateway_Classifies401ByEndpoint(t *testing.T) {
	srv := newBackend(t, &recorder{})
	g := New(srv.URL, newTestSession(t), WithRateLimit(0))
	ctx := context.Background()

	err := g.PostForm(ctx, "/auth/login", url.Values{"username": {"u"}, "password": {"p"}}, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindCredential, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, `{"detail":"Incorrect username or password"}`, apiErr.Message, "payload re-raised unchanged")

	err = g.Get(ctx, "/ledger/balance", nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStaleSession, apiErr.Kind)
	assert.Equal(t, `{"detail":"token expired"}`, apiErr.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestGateway_UnauthorizedIsMarkedRetried(t *testing.T) {
	srv := newBackend(t, &recorder{})
	g := New(srv.URL, newTestSession(t), WithRateLimit(0))
	ctx := context.Background()

	for _, path := range []string{"/ledger/balance", "/auth/login"} {
		err := g.Get(ctx, path, nil)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), path)
		assert.True(t, apiErr.AlreadyRetried, "%s: first 401 is already marked", path)
		assert.False(t, CanRetry(err), path)

		// re-issuing on the same context is still refused
		err = g.Get(ctx, path, nil)
		assert.False(t, CanRetry(err), path)
	}
}

func TestGateway_CanRetry(t *testing.T) {
	srv := newBackend(t, &recorder{})
	g := New(srv.URL, newTestSession(t), WithRateLimit(0))

	err := g.Get(context.Background(), "/market/quote/BOOM", nil)
	assert.Equal(t, KindServer, KindOf(err))
	assert.True(t, CanRetry(err), "5xx is transient")

	err = g.PostJSON(context.Background(), "/orders", map[string]string{"symbol": "SCOM"}, nil)
	assert.False(t, CanRetry(err), "other 4xx are not")

	assert.True(t, CanRetry(fmt.Errorf("wrapped: %w", &APIError{Kind: KindConnectivity})))
	assert.False(t, CanRetry(&APIError{Kind: KindCanceled}))
	assert.False(t, CanRetry(errors.New("plain")))
}

func TestGateway_ServerAndClientErrors(t *testing.T) {
	srv := newBackend(t, &recorder{})
	g := New(srv.URL, newTestSession(t), WithRateLimit(0))
	ctx := context.Background()

	err := g.Get(ctx, "/market/quote/BOOM", nil)
	assert.Equal(t, KindServer, KindOf(err))

	err = g.PostJSON(ctx, "/orders", map[string]string{"symbol": "SCOM"}, nil)
	assert.Equal(t, KindClient, KindOf(err))

	var out map[string]any
	err = g.Get(ctx, "/garbage", &out)
	assert.Equal(t, KindDecode, KindOf(err))
}

func TestGateway_ConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	g := New(base, newTestSession(t), WithRateLimit(0), WithTimeout(time.Second))
	err := g.Get(context.Background(), "/ledger/balance", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindConnectivity, apiErr.Kind)
	assert.Zero(t, apiErr.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestGateway_TimeoutIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g := New(srv.URL, newTestSession(t), WithRateLimit(0), WithTimeout(50*time.Millisecond))
	err := g.Get(context.Background(), "/slow", nil)
	assert.Equal(t, KindConnectivity, KindOf(err))
}

func TestGateway_CanceledContext(t *testing.T) {
	srv := newBackend(t, &recorder{})
	g := New(srv.URL, newTestSession(t), WithRateLimit(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Get(ctx, "/ledger/balance", nil)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestGateway_ObserverAndStats(t *testing.T) {
	srv := newBackend(t, &recorder{})

	var mu sync.Mutex
	var seen []Kind
	g := New(srv.URL, newTestSession(t), WithRateLimit(0), WithObserver(func(e *APIError) {
		mu.Lock()
		seen = append(seen, e.Kind)
		mu.Unlock()
	}))
	ctx := context.Background()

	_ = g.PostForm(ctx, "/auth/login", url.Values{}, nil)
	_ = g.Get(ctx, "/ledger/balance", nil)
	_ = g.Get(ctx, "/market/quote/BOOM", nil)

	assert.Equal(t, []Kind{KindCredential, KindStaleSession, KindServer}, seen)

	stats := g.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(1), stats.Credential)
	assert.Equal(t, int64(1), stats.StaleSession)
	assert.Equal(t, int64(1), stats.Server)
	assert.Zero(t, stats.Connectivity)
}

func TestGateway_PostFormEncodesBody(t *testing.T) {
	rec := &recorder{}
	srv := newBackend(t, rec)
	g := New(srv.URL+"/", newTestSession(t), WithRateLimit(0))

	var out map[string]string
	require.NoError(t, g.PostForm(context.Background(), "/echo", url.Values{"username": {"jane"}}, &out))
	assert.Equal(t, "application/x-www-form-urlencoded", out["content_type"])
	assert.Equal(t, "jane", out["username"])
}

func TestGateway_DoStripsBasePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := New(srv.URL+"/api/v1", newTestSession(t), WithRateLimit(0))
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)

	_, err = g.Do(req)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "/auth/me", apiErr.Endpoint)
	assert.Equal(t, KindCredential, apiErr.Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "credential", KindCredential.String())
	assert.Equal(t, "stale_session", KindStaleSession.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{Kind: KindServer, StatusCode: 503, Method: "GET", Endpoint: "/ledger/balance", Message: "down"}
	assert.True(t, strings.Contains(err.Error(), "503"))
	assert.True(t, strings.Contains(err.Error(), "server"))
}

func TestGateway_WithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	g := New("http://localhost", newTestSession(t), WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, g.httpClient.Timeout)
	assert.NotSame(t, shared, g.httpClient)
}

func TestGateway_ErrorMessageCapped(t *testing.T) {
	big := strings.Repeat("x", maxErrorBody+100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(big))
	}))
	t.Cleanup(srv.Close)

	g := New(srv.URL, newTestSession(t), WithRateLimit(0))
	err := g.Get(context.Background(), "/ledger/balance", nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, apiErr.Message, maxErrorBody)
}
