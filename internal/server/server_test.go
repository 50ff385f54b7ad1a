package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tsexpand "github.com/d-kimuson/ts-type-expand"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const fixture = `export interface User { name: string; tags: string[] }
export * from "./other"
const u: User = { name: "x", tags: [] }
`

func newTestServer(t *testing.T, opts ...tsexpand.Option) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.ts"), []byte(fixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.ts"), []byte("export type O = string\n"), 0o644))

	n := 0
	opts = append([]tsexpand.Option{tsexpand.WithKeyFunc(func() string {
		n++
		return fmt.Sprintf("k%d", n)
	})}, opts...)
	e, err := tsexpand.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.LoadDirectory(context.Background(), dir))
	return New(e), dir
}

func send(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) Response[T] {
	t.Helper()
	var res Response[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

// =============================================================================
// Endpoints
// =============================================================================

func TestIsActivated(t *testing.T) {
	s, _ := newTestServer(t)
	w := send(t, s, http.MethodGet, "/is_activated", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"isActivated":true}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestTypeFromPos_POST(t *testing.T) {
	s, dir := newTestServer(t)
	w := send(t, s, http.MethodPost, "/get_type_from_pos", TypeFromPosRequest{
		FilePath: filepath.Join(dir, "main.ts"), Line: 2, Character: 6,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[TypeFromPosResponse](t, w)
	require.True(t, res.Success)
	assert.Equal(t, "u", res.Data.DeclareName)
	assert.Equal(t, to.EnvelopeKind, res.Data.Type.Kind)

	got, err := to.Deserialize(res.Data.Type)
	require.NoError(t, err)
	assert.Equal(t, &to.Object{TypeName: "User", StoreKey: "k1"}, got)
}

func TestTypeFromPos_GET(t *testing.T) {
	s, dir := newTestServer(t)
	q := url.Values{
		"filePath":  {filepath.Join(dir, "main.ts")},
		"line":      {"2"},
		"character": {"6"},
	}
	w := send(t, s, http.MethodGet, "/get_type_from_pos?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "u", decode[TypeFromPosResponse](t, w).Data.DeclareName)
}

func TestTypeFromPos_Errors(t *testing.T) {
	s, dir := newTestServer(t)
	tests := []struct {
		name   string
		body   any
		status int
		reason string
	}{
		{"missing path", map[string]any{"line": 0, "character": 0}, http.StatusBadRequest, reasonInvalidRequest},
		{"negative line", TypeFromPosRequest{FilePath: "x.ts", Line: -1}, http.StatusBadRequest, reasonInvalidRequest},
		{"unknown file", TypeFromPosRequest{FilePath: filepath.Join(dir, "nope.ts")}, http.StatusNotFound, "fileNotFound"},
		{"past end", TypeFromPosRequest{FilePath: filepath.Join(dir, "main.ts"), Line: 50}, http.StatusNotFound, "nodeNotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(t, s, http.MethodPost, "/get_type_from_pos", tt.body)
			assert.Equal(t, tt.status, w.Code)
			res := decode[any](t, w)
			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.reason, res.Error.Reason)
		})
	}
}

func TestObjectProps(t *testing.T) {
	s, dir := newTestServer(t)
	w := send(t, s, http.MethodPost, "/extract_types", ExtractTypesRequest{FilePath: filepath.Join(dir, "main.ts")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(t, s, http.MethodPost, "/get_object_props", ObjectPropsRequest{StoreKey: "k1"})
	require.Equal(t, http.StatusOK, w.Code)
	props, err := to.DeserializeProperties(decode[ObjectPropsResponse](t, w).Data.Props)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, to.Property{Name: "name", Type: to.NewPrimitive(to.PrimitiveString)}, props[0])
	assert.Equal(t, "tags", props[1].Name)

	w = send(t, s, http.MethodGet, "/get_object_props?storeKey=k1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ObjectPropsResponse](t, w).Data.Props, 2)

	w = send(t, s, http.MethodGet, "/get_object_props?storeKey=missing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	unknown := decode[ObjectPropsResponse](t, w).Data.Props
	require.Len(t, unknown, 1)
	assert.Equal(t, "unknown", unknown[0].PropName)

	w = send(t, s, http.MethodGet, "/get_object_props", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractTypes(t *testing.T) {
	s, dir := newTestServer(t)
	w := send(t, s, http.MethodPost, "/extract_types", ExtractTypesRequest{FilePath: filepath.Join(dir, "main.ts")})
	require.Equal(t, http.StatusOK, w.Code)

	decls := decode[ExtractTypesResponse](t, w).Data.Declarations
	require.Len(t, decls, 1, "export * is skipped")
	assert.Equal(t, "User", decls[0].DeclareName)
}

func TestExtractTypes_StrictExportFailure(t *testing.T) {
	s, dir := newTestServer(t, tsexpand.WithStrictExports(true))
	w := send(t, s, http.MethodPost, "/extract_types", ExtractTypesRequest{FilePath: filepath.Join(dir, "main.ts")})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	res := decode[any](t, w)
	require.NotNil(t, res.Error)
	assert.Equal(t, "exportResolutionFailed", res.Error.Reason)
	assert.Equal(t, map[string]string{"reason": "notNamedExport"}, res.Error.Meta)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	send(t, s, http.MethodGet, "/is_activated", nil)

	w := send(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tsexpand_http_request_duration_seconds")
}

func TestRequestIDPropagates(t *testing.T) {
	s, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/is_activated", nil)
	r.Header.Set(requestIDHeader, "abc")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

// =============================================================================
// Client
// =============================================================================

func TestClient(t *testing.T) {
	s, dir := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	c := NewClient(ts.URL+"/", nil)
	ctx := context.Background()

	active, err := c.IsActivated(ctx)
	require.NoError(t, err)
	assert.True(t, active)

	decls, err := c.ExtractTypes(ctx, filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, &to.Object{TypeName: "User", StoreKey: "k1"}, decls[0].Type)

	text, err := render.New(c).Render(ctx, decls[0].Type)
	require.NoError(t, err)
	assert.Equal(t, "{ name: string; tags: string[]; }", text)

	name, typ, err := c.TypeFromPos(ctx, filepath.Join(dir, "main.ts"), 2, 6)
	require.NoError(t, err)
	assert.Equal(t, "u", name)
	assert.Equal(t, to.VariantObject, typ.Variant())

	_, _, err = c.TypeFromPos(ctx, filepath.Join(dir, "gone.ts"), 0, 0)
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotFound, re.Status)
	assert.Equal(t, "fileNotFound", re.Body.Reason)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	l, err := newLocalListener()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	c := NewClient("http://"+l.Addr().String(), nil)
	active, err := c.IsActivated(context.Background())
	require.NoError(t, err)
	assert.True(t, active)

	cancel()
	assert.NoError(t, <-done)
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}
