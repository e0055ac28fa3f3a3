package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return hex.EncodeToString(pub), priv
}

func sign(priv ed25519.PrivateKey, msg string) string {
	return hex.EncodeToString(ed25519.Sign(priv, []byte(msg)))
}

func TestEd25519(t *testing.T) {
	pk, priv := keypair(t)
	v := Ed25519{}

	t.Run("Should accept a valid signature", func(t *testing.T) {
		assert.True(t, v.Verify(pk, "addr-1", sign(priv, "addr-1")))
	})

	t.Run("Should reject a signature over another message", func(t *testing.T) {
		assert.False(t, v.Verify(pk, "addr-2", sign(priv, "addr-1")))
	})

	t.Run("Should reject malformed input without panicking", func(t *testing.T) {
		good := sign(priv, "a")
		assert.False(t, v.Verify("zz", "a", good))
		assert.False(t, v.Verify(pk[:10], "a", good))
		assert.False(t, v.Verify(pk, "a", "not-hex"))
		assert.False(t, v.Verify(pk, "a", good[:20]))
		assert.False(t, v.Verify("", "", ""))
	})
}

func TestCheck(t *testing.T) {
	always := VerifierFunc(func(_, _, _ string) bool { return true })
	assert.ErrorIs(t, Check(always, "", "a", "s"), ErrInvalidSignature)
	assert.ErrorIs(t, Check(always, "k", "a", ""), ErrInvalidSignature)
	assert.NoError(t, Check(always, "k", "a", "s"))
}

func TestGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pk, priv := keypair(t)

	newRouter := func(calls *int, opts ...GateOption) *gin.Engine {
		r := gin.New()
		r.Use(Gate(Ed25519{}, opts...))
		r.GET("/v1/kv/:key", func(c *gin.Context) {
			*calls++
			c.Status(http.StatusOK)
		})
		return r
	}

	t.Run("Should pass a signed request to the handler", func(t *testing.T) {
		var calls int
		req := httptest.NewRequest(http.MethodGet, "/v1/kv/k", nil)
		req.Header.Set(HeaderPublicKey, pk)
		req.Header.Set(HeaderAddress, "addr")
		req.Header.Set(HeaderSignature, sign(priv, "addr"))
		w := httptest.NewRecorder()
		newRouter(&calls).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should reject a bad signature before the handler runs", func(t *testing.T) {
		var calls int
		req := httptest.NewRequest(http.MethodGet, "/v1/kv/k", nil)
		req.Header.Set(HeaderPublicKey, pk)
		req.Header.Set(HeaderAddress, "other")
		req.Header.Set(HeaderSignature, sign(priv, "addr"))
		w := httptest.NewRecorder()
		newRouter(&calls).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid signature", w.Body.String())
		assert.Zero(t, calls)
	})

	t.Run("Should reject a request without headers", func(t *testing.T) {
		var calls int
		w := httptest.NewRecorder()
		newRouter(&calls).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/kv/k", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, calls)
	})

	t.Run("Should use a custom reject handler", func(t *testing.T) {
		var calls int
		r := newRouter(&calls, WithRejectHandler(func(c *gin.Context, err error) {
			c.JSON(http.StatusBadRequest, gin.H{"reason": err.Error()})
		}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/kv/k", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"reason":"Invalid signature"}`, w.Body.String())
		assert.Zero(t, calls)
	})
}
