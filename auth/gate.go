package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/kvstore"
)

type gateOptions struct {
	log    kvstore.Logger
	reject func(c *gin.Context, err error)
}

type GateOption func(*gateOptions)

func WithLogger(l kvstore.Logger) GateOption {
	return func(o *gateOptions) { o.log = l }
}

// WithRejectHandler replaces the default 400 response. The handler must write
// the response; the chain is aborted either way.
func WithRejectHandler(fn func(c *gin.Context, err error)) GateOption {
	return func(o *gateOptions) { o.reject = fn }
}

// Gate returns gin middleware that verifies the signature headers and aborts
// the chain with 400 on failure.
func Gate(v Verifier, opts ...GateOption) gin.HandlerFunc {
	o := gateOptions{log: kvstore.NopLogger{}, reject: defaultReject}
	for _, opt := range opts {
		opt(&o)
	}
	return func(c *gin.Context) {
		pk := c.GetHeader(HeaderPublicKey)
		addr := c.GetHeader(HeaderAddress)
		sig := c.GetHeader(HeaderSignature)

		if err := Check(v, pk, addr, sig); err != nil {
			o.log.Warn("invalid signature", kvstore.Fields{"path": c.FullPath(), "address": addr})
			_ = c.Error(err)
			o.reject(c, err)
			c.Abort()
			return
		}
		o.log.Debug("signature valid", kvstore.Fields{"address": addr})
		c.Next()
	}
}

func defaultReject(c *gin.Context, err error) {
	c.String(http.StatusBadRequest, err.Error())
}
