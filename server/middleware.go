package server

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"tlog.app/go/tlog"
)

func tracer(c *gin.Context) {
	ctx := c.Request.Context()

	tr := tlog.SpawnFromContextOrStart(ctx, "http_request", "client_ip", c.ClientIP(), "method", c.Request.Method, "path", c.Request.URL.Path)
	defer func() {
		if p := recover(); p != nil {
			tr.Printw("panic", "panic", p, "stack_trace", string(debug.Stack()), "", tlog.Error)

			c.AbortWithStatus(http.StatusInternalServerError)
		}

		tr.Finish("status_code", c.Writer.Status())
	}()

	c.Request = c.Request.WithContext(tlog.ContextWithSpan(ctx, tr))

	c.Set("tlog.span", tr)

	c.Next()
}

func spanFromContext(c *gin.Context) (tr tlog.Span) {
	i, _ := c.Get("tlog.span")
	tr, _ = i.(tlog.Span)

	return
}

func (s *Server) limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBodySize)
	}

	c.Next()
}
