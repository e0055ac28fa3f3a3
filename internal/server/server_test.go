package server

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/auth"
	"github.com/unkn0wn-root/kvstore/backend/ristretto"
	"github.com/unkn0wn-root/kvstore/codec"
)

func init() { gin.SetMode(gin.TestMode) }

type stubStorage struct {
	calls int
	err   error
	found bool
}

func (s *stubStorage) Set(context.Context, string, codec.Record) error {
	s.calls++
	return s.err
}

func (s *stubStorage) SetWithExpiry(context.Context, string, codec.Record, time.Duration) error {
	s.calls++
	return s.err
}

func (s *stubStorage) Get(context.Context, string) (any, bool, error) {
	s.calls++
	return codec.Record{"a": 1.0}, s.found, s.err
}

func (s *stubStorage) Delete(context.Context, string) error {
	s.calls++
	return s.err
}

func (s *stubStorage) Expire(context.Context, string, time.Duration) (bool, error) {
	s.calls++
	return s.found, s.err
}

func (s *stubStorage) Mode() kvstore.Mode { return kvstore.ModeOverwrite }

func do(t *testing.T, h http.Handler, method, target, body string, hdr map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestAuthGate(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signed := map[string]string{
		auth.HeaderPublicKey: hex.EncodeToString(pub),
		auth.HeaderAddress:   "addr-1",
		auth.HeaderSignature: hex.EncodeToString(ed25519.Sign(priv, []byte("addr-1"))),
	}

	t.Run("Should reject a bad signature without touching storage", func(t *testing.T) {
		st := &stubStorage{found: true}
		srv, err := New(Options{Storage: st, Verifier: auth.Ed25519{}})
		require.NoError(t, err)

		bad := map[string]string{
			auth.HeaderPublicKey: signed[auth.HeaderPublicKey],
			auth.HeaderAddress:   "addr-2",
			auth.HeaderSignature: signed[auth.HeaderSignature],
		}
		w, resp := do(t, srv.Handler(), http.MethodPut, "/v1/kv/k", `{"a":1}`, bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid signature", resp.Reason)
		assert.Equal(t, StatusError, resp.Status)
		assert.NotEmpty(t, resp.ID)
		assert.Zero(t, st.calls)
	})

	t.Run("Should pass a signed request through", func(t *testing.T) {
		st := &stubStorage{found: true}
		srv, err := New(Options{Storage: st, Verifier: auth.Ed25519{}})
		require.NoError(t, err)

		w, resp := do(t, srv.Handler(), http.MethodGet, "/v1/kv/k", "", signed)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "/v1/kv/:key", resp.Route)
		assert.Equal(t, 1, st.calls)
	})

	t.Run("Should leave health checks open", func(t *testing.T) {
		srv, err := New(Options{Storage: &stubStorage{}, Verifier: auth.Ed25519{}})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFailureMapping(t *testing.T) {
	cases := []struct {
		name    string
		kind    kvstore.Kind
		durable bool
		method  string
		code    int
		reason  string
	}{
		{"Should map cache read failures", kvstore.KindBackendReadFailed, false, http.MethodGet, 500, "Data fetch on cache failed"},
		{"Should map db write failures", kvstore.KindBackendWriteFailed, true, http.MethodPut, 500, "DB insertion failed"},
		{"Should map cache delete failures", kvstore.KindBackendDeleteFailed, false, http.MethodDelete, 500, "Cache deletion failed"},
		{"Should map serialization failures", kvstore.KindSerializationFailed, false, http.MethodPut, 400, "Data serialization failed"},
		{"Should map deserialization failures", kvstore.KindDeserializationFailed, true, http.MethodGet, 500, "Data deserialization failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &stubStorage{err: &kvstore.Error{Kind: tc.kind, Op: "x", Key: "k", Err: errors.New("boom")}}
			srv, err := New(Options{Storage: st, Durable: tc.durable})
			require.NoError(t, err)
			body := ""
			if tc.method == http.MethodPut {
				body = `{"a":1}`
			}
			w, resp := do(t, srv.Handler(), tc.method, "/v1/kv/k", body, nil)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.reason, resp.Reason)
		})
	}

	t.Run("Should map unsupported expiry to 501", func(t *testing.T) {
		st := &stubStorage{err: &kvstore.Error{Kind: kvstore.KindUnsupported}}
		srv, err := New(Options{Storage: st})
		require.NoError(t, err)
		w, _ := do(t, srv.Handler(), http.MethodPost, "/v1/kv/k/expire?ttl=10", "", nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})
}

func TestRequestValidation(t *testing.T) {
	st := &stubStorage{}
	srv, err := New(Options{Storage: st})
	require.NoError(t, err)
	h := srv.Handler()

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPut, "/v1/kv/k", `[1,2]`},
		{http.MethodPut, "/v1/kv/k", `null`},
		{http.MethodPut, "/v1/kv/k?ttl=soon", `{"a":1}`},
		{http.MethodPost, "/v1/kv/k/expire", ""},
	} {
		w, resp := do(t, h, tc.method, tc.target, tc.body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.target)
		assert.Equal(t, "Invalid request", resp.Reason)
	}
	assert.Zero(t, st.calls)
}

func TestEndToEnd(t *testing.T) {
	be, err := ristretto.New(ristretto.DefaultConfig(1 << 20))
	require.NoError(t, err)
	defer be.Close(context.Background())

	log, err := kvstore.NewLog(kvstore.Options[codec.Record]{Backend: be, Codec: codec.JSON[codec.Record]{}})
	require.NoError(t, err)
	srv, err := New(Options{Storage: Adapt(log)})
	require.NoError(t, err)
	h := srv.Handler()

	t.Run("Should append and read back a collection", func(t *testing.T) {
		w, _ := do(t, h, http.MethodPut, "/v1/kv/session:42", `{"event":"login"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w, _ = do(t, h, http.MethodPut, "/v1/kv/session:42?ttl=60", `{"event":"view"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := do(t, h, http.MethodGet, "/v1/kv/session:42", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		items, ok := resp.Content.([]any)
		require.True(t, ok, "append mode returns a list, got %T", resp.Content)
		require.Len(t, items, 2)
		assert.Equal(t, "login", items[0].(map[string]any)["event"])
	})

	t.Run("Should report missing keys as not found", func(t *testing.T) {
		w, resp := do(t, h, http.MethodGet, "/v1/kv/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Data not found", resp.Reason)

		w, _ = do(t, h, http.MethodPost, "/v1/kv/nope/expire?ttl=5", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w, _ := do(t, h, http.MethodDelete, "/v1/kv/session:42", "", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		}
		w, _ := do(t, h, http.MethodGet, "/v1/kv/session:42", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should expire immediately with ttl 0", func(t *testing.T) {
		w, _ := do(t, h, http.MethodPut, "/v1/kv/gone?ttl=0", `{"a":1}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w, _ = do(t, h, http.MethodGet, "/v1/kv/gone", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv, err := New(Options{Storage: &stubStorage{}, Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
