package selection

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component/comptest"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/scope"
)

const user = `{"id":"u2","role":{"role_type":2},"schools":[
	{"school_id":"S1","school_name":"North","subjects":[
		{"subject_id":"M1","subject_name":"Math"},{"subject_id":"P1","subject_name":"Physics"}]},
	{"school_id":"S2","school_name":"South","subjects":[]}]}`

func api() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" || r.Header.Get("Authorization") != "Bearer "+comptest.Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(user))
	})
}

var tokenRE = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestPage_ListsPairsAndSelects(t *testing.T) {
	env := comptest.New(t, api())
	env.Login(account.RoleTeachingStaff, nil)
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/select", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "North &middot; Math")
	assert.Contains(t, body, "North &middot; Physics")
	assert.NotContains(t, body, "South")

	m := tokenRE.FindStringSubmatch(body)
	require.Len(t, m, 2)

	f := url.Values{
		form.FieldName: {m[1]},
		"pair":         {pairValue("S1", "P1")},
	}
	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader(f.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.Do(h, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "P1", env.State().SubjectID())
}

func TestPage_RejectsBadCSRF(t *testing.T) {
	env := comptest.New(t, api())
	env.Login(account.RoleTeachingStaff, nil)
	h := env.Handler(&Component{})

	f := url.Values{form.FieldName: {"forged"}, "pair": {pairValue("S1", "M1")}}
	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader(f.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.Do(h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, env.State().Selection)
}

func TestAPI_PutGetDelete(t *testing.T) {
	env := comptest.New(t, api())
	env.Login(account.RoleTeachingStaff, nil)
	h := env.Handler(&Component{})

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/context", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.Do(h, req)
	}

	rec := put(`{"school_id":"S1","subject_id":"Z9"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = put(`{"school_id":"S1","subject_id":"M1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject_name":"Math"`)

	rec = env.Do(h, httptest.NewRequest(http.MethodGet, "/api/context", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject_id":"M1"`)
	assert.Contains(t, rec.Body.String(), `"role":"teacher"`)

	rec = env.Do(h, httptest.NewRequest(http.MethodDelete, "/api/context", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, env.State().Selection)
}

func TestAPI_Options(t *testing.T) {
	env := comptest.New(t, api())
	env.Login(account.RoleTeachingStaff, &scope.Selection{SchoolID: "S1", SubjectID: "M1"})
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/api/context/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"school_id":"S1"`))
}

func TestRequiresLogin(t *testing.T) {
	env := comptest.New(t, api())
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/select", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
