package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"tlog.app/go/errors"

	"github.com/mongood/shelldata/command"
	"github.com/mongood/shelldata/config"
	"github.com/mongood/shelldata/shelldata"
	"github.com/mongood/shelldata/stream"
)

type (
	parseResponse struct {
		Kind  string          `json:"kind"`
		Text  string          `json:"text"`
		Hash  string          `json:"hash"`
		Value json.RawMessage `json:"value"`
	}

	errorResponse struct {
		Error       string `json:"error"`
		Kind        string `json:"kind,omitempty"`
		Offset      *int   `json:"offset,omitempty"`
		Line        int    `json:"line,omitempty"`
		Column      int    `json:"column,omitempty"`
		Expected    string `json:"expected,omitempty"`
		Found       string `json:"found,omitempty"`
		Constructor string `json:"constructor,omitempty"`
	}

	currentOpRequest struct {
		Filter string `json:"filter"`
		NS     string `json:"ns"`
	}

	createIndexesRequest struct {
		Collection string `json:"collection"`
		Spec       string `json:"spec"`
	}

	filterResponse struct {
		Filter   string `json:"filter"`
		Changed  bool   `json:"changed"`
		Revision uint64 `json:"revision"`
	}

	exampleResponse struct {
		Name   string `json:"name"`
		Filter string `json:"filter"`
	}
)

func (s *Server) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Server) parse(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	v, err := shelldata.ParseWithOptions(string(body), s.cfg.ParseOptions())
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	mode := shelldata.Canonical
	if queryBool(c, "relaxed") {
		mode = shelldata.Relaxed
	}

	text := v.String()

	spanFromContext(c).V("parse").Printw("parsed", "kind", v.Kind(), "len", len(body))

	c.JSON(http.StatusOK, parseResponse{
		Kind:  v.Kind().String(),
		Text:  text,
		Hash:  stream.HashToHex(stream.StateHashText(text)),
		Value: shelldata.ToExtJSON(v, mode),
	})
}

// format rewrites text canonically. With multi=true the body is a stream of values.
func (s *Server) format(c *gin.Context) {
	opts, err := s.emitOptions(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	body, ok := s.readBody(c)
	if !ok {
		return
	}

	if queryBool(c, "multi") {
		var buf bytes.Buffer

		err = formatStream(&buf, bytes.NewReader(body), s.cfg.ParseOptions(), opts)
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}

		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
		return
	}

	v, err := shelldata.ParseWithOptions(string(body), s.cfg.ParseOptions())
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	c.String(http.StatusOK, shelldata.Serialize(v, opts))
}

func formatStream(w io.Writer, r io.Reader, popts shelldata.ParseOptions, eopts shelldata.EmitOptions) error {
	var sw *stream.Writer
	if eopts.Pretty {
		sw = stream.NewPrettyWriter(w, eopts.IndentWidth)
	} else {
		sw = stream.NewWriter(w)
	}

	sr := stream.NewReader(r, stream.WithParseOptions(popts))

	values, err := sr.ReadAll()
	if err != nil {
		return err
	}

	return sw.WriteAll(values...)
}

func (s *Server) render(c *gin.Context) {
	opts, err := s.emitOptions(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	body, ok := s.readBody(c)
	if !ok {
		return
	}

	v, err := shelldata.FromExtJSON(body)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	c.String(http.StatusOK, shelldata.Serialize(v, opts))
}

func (s *Server) currentOp(c *gin.Context) {
	var req currentOpRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return
	}

	filter, err := shelldata.ParseWithOptions(req.Filter, shelldata.ParseOptions{AllowEmpty: true, MaxDepth: s.cfg.Parse.MaxDepth})
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	cmd, err := command.CurrentOp(filter, req.NS)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	c.Data(http.StatusOK, "application/json", shelldata.ToExtJSON(cmd, shelldata.Canonical))
}

func (s *Server) createIndexes(c *gin.Context) {
	var req createIndexesRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return
	}

	spec := command.DefaultIndexSpec()

	if req.Spec != "" {
		var err error

		spec, err = shelldata.ParseWithOptions(req.Spec, s.cfg.ParseOptions())
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	cmd, err := command.CreateIndexes(req.Collection, spec)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	c.Data(http.StatusOK, "application/json", shelldata.ToExtJSON(cmd, shelldata.Canonical))
}

func (s *Server) examples(c *gin.Context) {
	resp := make([]exampleResponse, 0, len(command.Examples))

	for _, e := range command.Examples {
		v, _ := command.ExampleFilter(e.Name)

		resp = append(resp, exampleResponse{Name: e.Name, Filter: v.String()})
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getFilter(c *gin.Context) {
	c.JSON(http.StatusOK, filterResponse{
		Filter:   s.filter.Get().String(),
		Revision: s.filter.Revision(),
	})
}

func (s *Server) putFilter(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	changed, err := s.filter.SetText(string(body))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	if changed {
		spanFromContext(c).Printw("filter changed", "filter", s.filter.Get().String(), "revision", s.filter.Revision())
	}

	c.JSON(http.StatusOK, filterResponse{
		Filter:   s.filter.Get().String(),
		Changed:  changed,
		Revision: s.filter.Revision(),
	})
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.fail(c, http.StatusRequestEntityTooLarge, errors.New("body exceeds %d bytes", tooLarge.Limit))
		return nil, false
	}

	if err != nil {
		s.fail(c, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return nil, false
	}

	return body, true
}

func (s *Server) emitOptions(c *gin.Context) (shelldata.EmitOptions, error) {
	opts := s.cfg.EmitOptions()

	if q, ok := c.GetQuery("pretty"); ok {
		pretty, err := strconv.ParseBool(q)
		if err != nil {
			return opts, errors.Wrap(err, "pretty")
		}

		opts.Pretty = pretty
		if pretty && opts.IndentWidth == 0 {
			opts.IndentWidth = s.cfg.Format.IndentWidth
		}
	}

	if q, ok := c.GetQuery("indent"); ok {
		n, err := strconv.Atoi(q)
		if err != nil {
			return opts, errors.Wrap(err, "indent")
		}

		if n < 0 || n > config.MaxIndentWidth {
			return opts, errors.New("indent: %d out of range 0..%d", n, config.MaxIndentWidth)
		}

		opts.IndentWidth = n
	}

	return opts, nil
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	resp := errorResponse{Error: err.Error()}

	if pos, ok := shelldata.ErrorPosition(err); ok {
		off := pos.Offset

		resp.Offset = &off
		resp.Line = pos.Line
		resp.Column = pos.Column
	}

	var lex *shelldata.LexError
	var syn *shelldata.SyntaxError
	var val *shelldata.ValidationError

	switch {
	case errors.As(err, &lex):
		resp.Kind = "lex"
	case errors.As(err, &syn):
		resp.Kind = "syntax"
		resp.Expected = syn.Expected
		resp.Found = syn.Found
		resp.Constructor = syn.Constructor
	case errors.As(err, &val):
		resp.Kind = "validation"
		resp.Constructor = val.Constructor
	}

	spanFromContext(c).V("http").Printw("request failed", "status", status, "err", err)

	c.AbortWithStatusJSON(status, resp)
}
