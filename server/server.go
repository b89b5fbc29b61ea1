// Package server exposes parsing and formatting of literal text over HTTP.
//
// It is the façade GUI views call to validate what the user typed,
// highlight errors at their source position, and render wire values.
//
//	POST /v1/parse                    text -> canonical Extended JSON, hash
//	POST /v1/format?pretty=&indent=   text -> canonical text
//	POST /v1/render?pretty=&indent=   Extended JSON -> text
//	POST /v1/commands/current-op      {"filter": text, "ns": ns} -> command
//	POST /v1/commands/create-indexes  {"collection": c, "spec": text} -> command
//	GET  /v1/examples                 currentOp filter presets
//	GET  /v1/filter, PUT /v1/filter   shared operation filter
//	GET  /healthz
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/mongood/shelldata/command"
	"github.com/mongood/shelldata/config"
)

type (
	Server struct {
		cfg *config.Config

		// MaxBodySize limits request bodies.
		MaxBodySize int64

		filter command.Filter

		engine *gin.Engine
	}
)

// New creates a server with routes installed.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:         cfg,
		MaxBodySize: 4 << 20,
	}

	r := gin.New()

	r.Use(tracer)

	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.Use(s.limitBody)

	v1.POST("/parse", s.parse)
	v1.POST("/format", s.format)
	v1.POST("/render", s.render)
	v1.POST("/commands/current-op", s.currentOp)
	v1.POST("/commands/create-indexes", s.createIndexes)
	v1.GET("/examples", s.examples)
	v1.GET("/filter", s.getFilter)
	v1.PUT("/filter", s.putFilter)

	s.engine = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.engine.ServeHTTP(w, req)
}

// Serve serves HTTP on l until ctx is canceled.
func (s *Server) Serve(ctx context.Context, l net.Listener) (err error) {
	tr := tlog.SpawnFromContext(ctx, "http_server", "addr", l.Addr())
	defer tr.Finish("err", &err)

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return tlog.ContextWithSpan(context.Background(), tr) },
	}

	done := make(chan error, 1)

	go func() {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done <- srv.Shutdown(sctx)
	}()

	err = srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		err = <-done
		if err != nil {
			return errors.Wrap(err, "shutdown")
		}

		return nil
	}

	return errors.Wrap(err, "serve")
}
