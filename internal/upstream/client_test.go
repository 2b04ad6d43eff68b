package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/scoping"
)

func sessionCtx(t *testing.T, token string, sel *scope.Selection) context.Context {
	t.Helper()
	ctx := context.Background()
	st := scope.NewMemoryStore(0)
	t.Cleanup(st.Close)
	h, err := scope.NewHandle(ctx, st, "sid")
	require.NoError(t, err)
	if token != "" {
		require.NoError(t, h.SetAuth(ctx, account.RoleStudent, token))
	}
	if sel != nil {
		require.NoError(t, h.SetContext(ctx, *sel))
	}
	return scope.WithHandle(ctx, h)
}

func TestClient_GetDecoratesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/exercises", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "M1", r.Header.Get(scoping.HeaderName))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/v1/", time.Second, nil)
	require.NoError(t, err)

	ctx := sessionCtx(t, "tok", &scope.Selection{SchoolID: "S1", SubjectID: "M1"})
	var out struct{ OK bool }
	require.NoError(t, c.Get(ctx, "/exercises", url.Values{"page": {"2"}}, &out))
	assert.True(t, out.OK)
}

func TestClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"options must be unique"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, nil)
	require.NoError(t, err)

	err = c.Post(sessionCtx(t, "tok", nil), "/questions", map[string]string{"a": "b"}, nil)
	ue, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, ue.StatusCode)
	assert.Equal(t, "options must be unique", ue.Message)
}

func TestClient_NoToken(t *testing.T) {
	c, err := New("http://example.invalid", time.Second, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Get(sessionCtx(t, "", nil), "/x", nil, nil), ErrNoToken)
	assert.ErrorIs(t, c.Get(context.Background(), "/x", nil, nil), scope.ErrNoSession)
}

func TestNew_RejectsRelativeBase(t *testing.T) {
	_, err := New("/api", time.Second, nil)
	assert.Error(t, err)
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
	}{
		{400, `{"message":"bad filter"}`, "bad filter"},
		{400, `{"error":"nope"}`, "nope"},
		{400, `{"error":{"message":"nested"}}`, "nested"},
		{400, `{"detail":"detail text"}`, "detail text"},
		{502, `upstream exploded`, "upstream exploded"},
		{404, ``, "Not Found"},
		{500, `{"unrelated":1}`, "Internal Server Error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMessage(tt.status, []byte(tt.body)), tt.body)
	}
}
