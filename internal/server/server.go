// Package server exposes a record store over HTTP.
//
//	GET    /healthz
//	GET    /metrics
//	GET    /v1/kv/:key
//	PUT    /v1/kv/:key?ttl=<seconds>     body: JSON object
//	DELETE /v1/kv/:key
//	POST   /v1/kv/:key/expire?ttl=<seconds>
//
// Everything under /v1 sits behind the signature gate when a Verifier is set.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/auth"
	"github.com/unkn0wn-root/kvstore/codec"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Storage Storage
	// Durable selects DB or cache wording in failure reasons.
	Durable bool
	// Verifier gates /v1; nil disables the gate.
	Verifier auth.Verifier
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	Logger  kvstore.Logger
}

type Server struct {
	opts   Options
	log    kvstore.Logger
	router *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Storage == nil {
		return nil, errors.New("server: storage is required")
	}
	s := &Server{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = kvstore.NopLogger{}
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(s.accessLog())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.opts.Storage.Mode().String()})
	})
	if s.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	v1 := router.Group("/v1")
	if s.opts.Verifier != nil {
		v1.Use(auth.Gate(s.opts.Verifier,
			auth.WithLogger(s.log),
			auth.WithRejectHandler(func(c *gin.Context, _ error) {
				reply(c, http.StatusBadRequest, reasonInvalidSignature, nil)
			}),
		))
	}
	kv := v1.Group("/kv")
	kv.GET("/:key", s.get)
	kv.PUT("/:key", s.put)
	kv.DELETE("/:key", s.del)
	kv.POST("/:key/expire", s.expire)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", kvstore.Fields{"address": s.opts.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server shutdown completed", nil)
	return nil
}

func (s *Server) get(c *gin.Context) {
	v, ok, err := s.opts.Storage.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		reply(c, http.StatusNotFound, reasonNotFound, nil)
		return
	}
	reply(c, http.StatusOK, "", v)
}

func (s *Server) put(c *gin.Context) {
	var rec codec.Record
	if err := c.ShouldBindJSON(&rec); err != nil || rec == nil {
		reply(c, http.StatusBadRequest, reasonBadRequest, "body must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	key := c.Param("key")
	var err error
	if raw, set := c.GetQuery("ttl"); set {
		ttl, perr := parseTTL(raw)
		if perr != nil {
			reply(c, http.StatusBadRequest, reasonBadRequest, perr.Error())
			return
		}
		err = s.opts.Storage.SetWithExpiry(ctx, key, rec, ttl)
	} else {
		err = s.opts.Storage.Set(ctx, key, rec)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, "", key)
}

func (s *Server) del(c *gin.Context) {
	key := c.Param("key")
	if err := s.opts.Storage.Delete(c.Request.Context(), key); err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, "", key)
}

func (s *Server) expire(c *gin.Context) {
	ttl, err := parseTTL(c.Query("ttl"))
	if err != nil {
		reply(c, http.StatusBadRequest, reasonBadRequest, err.Error())
		return
	}
	found, err := s.opts.Storage.Expire(c.Request.Context(), c.Param("key"), ttl)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !found {
		reply(c, http.StatusNotFound, reasonNotFound, nil)
		return
	}
	reply(c, http.StatusOK, "", c.Param("key"))
}

func (s *Server) fail(c *gin.Context, err error) {
	code, reason := failure(err, s.opts.Durable)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", kvstore.Fields{"route": c.FullPath(), "err": err.Error()})
	}
	_ = c.Error(err)
	reply(c, code, reason, nil)
}

// parseTTL reads whole seconds. Zero or negative values are passed through
// and expire the key immediately.
func parseTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, errors.New("ttl is required")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ttl must be whole seconds: %q", raw)
	}
	return time.Duration(n) * time.Second, nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request", kvstore.Fields{
			"method":  c.Request.Method,
			"route":   c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"id":      c.GetString(requestIDKey),
		})
	}
}
