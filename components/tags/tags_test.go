package tags

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component/comptest"
	"github.com/yanizio/campus/internal/scope"
)

func TestList_SwitchingSubjectMisses(t *testing.T) {
	var calls atomic.Int32
	env := comptest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"items":[{"id":"t1","name":"geometry"}],"total":1}`))
	}))
	env.Login(account.RoleStudent, &scope.Selection{SchoolID: "S1", SubjectID: "M1"})
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "geometry")
	env.Do(h, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	assert.Equal(t, int32(1), calls.Load())

	env.Login(account.RoleStudent, &scope.Selection{SchoolID: "S1", SubjectID: "P1"})
	env.Do(h, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestList_RequiresSession(t *testing.T) {
	env := comptest.New(t, http.NotFoundHandler())
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
