package credits

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/component/comptest"
)

func TestFormatCredits(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		7:        "7",
		999:      "999",
		1000:     "1,000",
		12500:    "12,500",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",

		math.MinInt64: "-9,223,372,036,854,775,808",
		math.MaxInt64: "9,223,372,036,854,775,807",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCredits(in), in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}, nil))
	d := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "9 Mar 2024", FormatDate(d, nil))
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, "10 Mar 2024", FormatDate(d, tokyo))
}

type fakeAPI struct{ balances atomic.Int32 }

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/credits":
		f.balances.Add(1)
		_, _ = w.Write([]byte(`{"credits":12500,"plan":"standard","renews_at":"2024-03-09T10:00:00Z"}`))
	case "/credits/transactions":
		_, _ = w.Write([]byte(`{"items":[{"id":"x1","amount":-1500,"kind":"spend","created_at":"2024-02-01T08:00:00Z"}],"total":1}`))
	case "/credits/subscription":
		_, _ = w.Write([]byte(`{"plan":"premium"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestBalanceAndTransactions(t *testing.T) {
	api := &fakeAPI{}
	env := comptest.New(t, api)
	env.Login(account.RoleAdministrator, nil)
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodGet, "/api/credits", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"credits_display":"12,500"`)
	assert.Contains(t, rec.Body.String(), `"renews_on":"9 Mar 2024"`)

	rec = env.Do(h, httptest.NewRequest(http.MethodGet, "/api/credits/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount_display":"-1,500"`)
	assert.Contains(t, rec.Body.String(), `"date":"1 Feb 2024"`)

	env.Do(h, httptest.NewRequest(http.MethodGet, "/api/credits", nil))
	assert.Equal(t, int32(1), api.balances.Load())

	rec = env.Do(h, httptest.NewRequest(http.MethodPost, "/api/credits/subscription", strings.NewReader(`{"plan":"premium","seats":30}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	env.Do(h, httptest.NewRequest(http.MethodGet, "/api/credits", nil))
	assert.Equal(t, int32(2), api.balances.Load())
}

func TestSubscription_AdminOnly(t *testing.T) {
	env := comptest.New(t, &fakeAPI{})
	env.Login(account.RoleTeachingStaff, nil)
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodPost, "/api/credits/subscription", strings.NewReader(`{"plan":"premium","seats":30}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubscription_Validation(t *testing.T) {
	env := comptest.New(t, &fakeAPI{})
	env.Login(account.RoleAdministrator, nil)
	h := env.Handler(&Component{})

	rec := env.Do(h, httptest.NewRequest(http.MethodPost, "/api/credits/subscription", strings.NewReader(`{"plan":"gold","seats":0}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
