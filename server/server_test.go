package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongood/shelldata/config"
	"github.com/mongood/shelldata/shelldata"
	"github.com/mongood/shelldata/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "%s", w.Body)

	return resp
}

func TestHealthz(t *testing.T) {
	w := do(t, New(nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestParse(t *testing.T) {
	s := New(nil)

	w := do(t, s, http.MethodPost, "/v1/parse", `{ a : 1, at: ISODate("2020-01-02T03:04:05.678Z") }`)
	require.Equal(t, http.StatusOK, w.Code, "%s", w.Body)

	var resp parseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	text := `{a:1,at:ISODate("2020-01-02T03:04:05.678Z")}`

	assert.Equal(t, "document", resp.Kind)
	assert.Equal(t, text, resp.Text)
	assert.Equal(t, stream.HashToHex(stream.StateHashText(text)), resp.Hash)
	assert.JSONEq(t, `{"a":{"$numberInt":"1"},"at":{"$date":{"$numberLong":"1577934245678"}}}`, string(resp.Value))

	w = do(t, s, http.MethodPost, "/v1/parse?relaxed=true", `{a: 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.JSONEq(t, `{"a":1}`, string(resp.Value))
}

func TestParse_Errors(t *testing.T) {
	s := New(nil)

	w := do(t, s, http.MethodPost, "/v1/parse", `{"a": tru}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "syntax", resp.Kind)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, 6, *resp.Offset)
	assert.Equal(t, 1, resp.Line)
	assert.Equal(t, 7, resp.Column)
	assert.Equal(t, "tru", resp.Found)

	w = do(t, s, http.MethodPost, "/v1/parse", `{_id: ObjectId("xyz")}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp = decodeError(t, w)
	assert.Equal(t, "validation", resp.Kind)
	assert.Equal(t, "ObjectId", resp.Constructor)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, 15, *resp.Offset)

	w = do(t, s, http.MethodPost, "/v1/parse", `{a: "open`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp = decodeError(t, w)
	assert.Equal(t, "lex", resp.Kind)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, 4, *resp.Offset)

	w = do(t, s, http.MethodPost, "/v1/parse", ``)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "syntax", decodeError(t, w).Kind)
}

func TestParse_AllowEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.Parse.AllowEmpty = true

	w := do(t, New(cfg), http.MethodPost, "/v1/parse", "  // nothing\n")
	require.Equal(t, http.StatusOK, w.Code)

	var resp parseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "{}", resp.Text)
}

func TestParse_BodyLimit(t *testing.T) {
	s := New(nil)
	s.MaxBodySize = 8

	w := do(t, s, http.MethodPost, "/v1/parse", `{a: "0123456789"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFormat(t *testing.T) {
	s := New(nil)

	w := do(t, s, http.MethodPost, "/v1/format", `{ b : [1, 2,], a: NumberLong(5) }`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{b:[1,2],a:NumberLong(5)}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/format?pretty=true", `{a: [1]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{\n  a: [\n    1\n  ]\n}", w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/format?pretty=1&indent=4", `{a: 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{\n    a: 1\n}", w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/format?multi=true", "{a: 1}\n// next\n[ 2 ]")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{a:1}\n[2]\n", w.Body.String())

	for _, q := range []string{"pretty=maybe", "indent=x", "indent=17", "indent=-1"} {
		w = do(t, s, http.MethodPost, "/v1/format?"+q, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w = do(t, s, http.MethodPost, "/v1/format?multi=true", "{a: 1} {a: ")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormat_ConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Format.Pretty = true
	cfg.Format.IndentWidth = 3

	w := do(t, New(cfg), http.MethodPost, "/v1/format", `{a: 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{\n   a: 1\n}", w.Body.String())

	w = do(t, New(cfg), http.MethodPost, "/v1/format?pretty=false", `{a: 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{a:1}", w.Body.String())
}

func TestRender(t *testing.T) {
	s := New(nil)

	body := `{"inprog":[{"opid":{"$numberInt":"7"},"secs_running":{"$numberLong":"12"},"ns":"db.c",` +
		`"currentOpTime":{"$date":"2020-01-02T03:04:05.678Z"}}],"ok":{"$numberDouble":"1.0"}}`

	w := do(t, s, http.MethodPost, "/v1/render", body)
	require.Equal(t, http.StatusOK, w.Code, "%s", w.Body)
	assert.Equal(t, `{inprog:[{opid:7,secs_running:NumberLong(12),ns:"db.c",currentOpTime:ISODate("2020-01-02T03:04:05.678Z")}],ok:1.0}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/render", `{"_id": {"$oid": "nope"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentOp(t *testing.T) {
	s := New(nil)

	w := do(t, s, http.MethodPost, "/v1/commands/current-op", `{"filter": "{active: true, secs_running: {$gt: 5}}", "ns": "db.c"}`)
	require.Equal(t, http.StatusOK, w.Code, "%s", w.Body)
	assert.Equal(t, `{"currentOp":{"$numberInt":"1"},"active":true,"secs_running":{"$gt":{"$numberInt":"5"}},"ns":"db.c"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/commands/current-op", `{"filter": ""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"currentOp":{"$numberInt":"1"}}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/commands/current-op", `{"filter": "[1]"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/commands/current-op", `{"filter": "{a: }"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "syntax", decodeError(t, w).Kind)

	w = do(t, s, http.MethodPost, "/v1/commands/current-op", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIndexes(t *testing.T) {
	s := New(nil)

	w := do(t, s, http.MethodPost, "/v1/commands/create-indexes", `{"collection": "users"}`)
	require.Equal(t, http.StatusOK, w.Code, "%s", w.Body)
	assert.Equal(t, `{"createIndexes":"users","indexes":[{"background":true}]}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/commands/create-indexes", `{"collection": "users", "spec": "{key: {a: 1}}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"createIndexes":"users","indexes":[{"key":{"a":{"$numberInt":"1"}}}]}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/commands/create-indexes", `{"spec": "{}"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExamples(t *testing.T) {
	w := do(t, New(nil), http.MethodGet, "/v1/examples", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []exampleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp)

	assert.Equal(t, "Slow operations", resp[0].Name)
	assert.Equal(t, `{active:true,microsecs_running:{"$gte":100000}}`, resp[0].Filter)

	for _, e := range resp {
		_, err := shelldata.Parse(e.Filter)
		assert.NoError(t, err, e.Name)
	}
}

func TestFilter(t *testing.T) {
	s := New(nil)

	var resp filterResponse

	w := do(t, s, http.MethodGet, "/v1/filter", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, filterResponse{Filter: "{}"}, resp)

	w = do(t, s, http.MethodPut, "/v1/filter", `{op: "query"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, filterResponse{Filter: `{op:"query"}`, Changed: true, Revision: 1}, resp)

	w = do(t, s, http.MethodPut, "/v1/filter", `{ 'op' : "query" }`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, filterResponse{Filter: `{op:"query"}`, Changed: false, Revision: 1}, resp)

	w = do(t, s, http.MethodPut, "/v1/filter", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/v1/filter", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `{op:"query"}`, resp.Filter)
}

func TestServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- New(nil).Serve(ctx, l)
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "ok\n", string(body))

	cancel()

	select {
	case err = <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
