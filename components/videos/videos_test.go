package videos

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component/comptest"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/scoping"
)

func api(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos":
			assert.Equal(t, "P1", r.Header.Get(scoping.HeaderName))
			assert.Equal(t, "algebra", r.URL.Query().Get("search"))
			_, _ = w.Write([]byte(`{"items":[{"id":"v1","title":"Intro"}],"total":1}`))
		case "/videos/v1/assignments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"a1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestList(t *testing.T) {
	env := comptest.New(t, api(t))
	env.Login(account.RoleStudent, &scope.Selection{SchoolID: "S1", SubjectID: "P1"})
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/api/videos?search=algebra", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"v1"`)
}

func TestAssign(t *testing.T) {
	env := comptest.New(t, api(t))
	env.Login(account.RoleTeachingStaff, &scope.Selection{SchoolID: "S1", SubjectID: "P1"})
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodPost, "/api/videos/v1/assignments", strings.NewReader(`{"class_id":"c7"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"a1"}`, rec.Body.String())

	rec = env.Do(h, httptest.NewRequest(http.MethodPost, "/api/videos/v1/assignments", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"class_id"`)

	rec = env.Do(h, httptest.NewRequest(http.MethodPost, "/api/videos/v1/assignments",
		strings.NewReader(`{"class_id":"c7","due_at":"2001-01-01T00:00:00Z"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAssign_StudentForbidden(t *testing.T) {
	env := comptest.New(t, api(t))
	env.Login(account.RoleStudent, nil)
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodPost, "/api/videos/v1/assignments", strings.NewReader(`{"class_id":"c7"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
