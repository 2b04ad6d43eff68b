package scoping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/scope"
)

func TestHeadersFor_AdminEndpointNeverScoped(t *testing.T) {
	for _, role := range []account.Role{account.RoleAdministrator, account.RoleStudent, account.RoleUnknown} {
		snap := Snapshot{SubjectID: "M1", Role: role}
		assert.Empty(t, HeadersFor("/schools", snap))
		assert.Empty(t, HeadersFor("https://api.example.com/v1/schools/S1/classes?page=2", snap))
	}
}

func TestHeadersFor_Attach(t *testing.T) {
	snap := Snapshot{SubjectID: "M1", Role: account.RoleStudent}
	want := map[string]string{"X-School-Subject-ID": "M1"}

	assert.Equal(t, want, HeadersFor("/exercises", snap))
	assert.Equal(t, want, HeadersFor("/videos?tag=algebra", snap))
	assert.Equal(t, want, HeadersFor("https://api.example.com/schoolsx", snap), "segment match only")
}

func TestHeadersFor_NoContext(t *testing.T) {
	assert.Empty(t, HeadersFor("/exercises", Snapshot{Role: account.RoleStudent}))
}

func TestHeadersFor_AdminCarveOuts(t *testing.T) {
	admin := Snapshot{SubjectID: "M1", Role: account.RoleAdministrator}
	teacher := Snapshot{SubjectID: "M1", Role: account.RoleTeachingStaff}

	tests := []struct {
		url  string
		snap Snapshot
		rule Rule
	}{
		{"/users", admin, RuleAdminUsers},
		{"/users/42", admin, RuleAdminUsers},
		{"/subjects", admin, RuleAdminSubjects},
		{"/users", teacher, RuleAttached},
		{"/subjects", teacher, RuleAttached},
		{"/exercises", admin, RuleAttached},
		{"/schools/S1/users", teacher, RuleAdminEndpoint},
	}
	for _, tt := range tests {
		h, rule := Decide(tt.url, tt.snap)
		assert.Equal(t, tt.rule, rule, tt.url)
		if rule == RuleAttached {
			assert.Equal(t, "M1", h[HeaderName], tt.url)
		} else {
			assert.Empty(t, h, tt.url)
		}
	}
}

func TestTransport_UsesSessionAtDispatch(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(HeaderName))
	}))
	defer srv.Close()

	ctx := context.Background()
	store := scope.NewMemoryStore(0)
	defer store.Close()
	h, err := scope.NewHandle(ctx, store, "sid")
	require.NoError(t, err)
	ctx = scope.WithHandle(ctx, h)

	client := &http.Client{Transport: NewTransport(nil)}
	send := func(path string) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set(HeaderName, "forged")
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "forged", req.Header.Get(HeaderName), "caller request untouched")
	}

	send("/exercises")
	require.NoError(t, h.SetContext(ctx, scope.Selection{SchoolID: "S1", SubjectID: "M1"}))
	send("/exercises")
	send("/schools")
	require.NoError(t, h.SetContext(ctx, scope.Selection{SchoolID: "S1", SubjectID: "P1"}))
	send("/exercises")

	assert.Equal(t, []string{"", "M1", "", "P1"}, got)
}

func TestTransport_NoHandle(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(HeaderName)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(http.DefaultTransport)}
	resp, err := client.Get(srv.URL + "/exercises")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "", got)
}
