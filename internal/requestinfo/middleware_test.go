package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnrich_ClientIPAndLang(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/select?school_id=S1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("Accept-Language", "fr-CA;q=0.9, en")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("RequestInfo not attached")
	}
	o := got.Origin()
	if o.IP != "203.0.113.7" {
		t.Fatalf("ip = %q", o.IP)
	}
	if got.UA.PrimaryLang != "fr-ca" {
		t.Fatalf("lang = %q", got.UA.PrimaryLang)
	}
	if o.Country != "" {
		t.Fatalf("no geo DB loaded, country should be empty, got %q", o.Country)
	}
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if ip := clientIP(req); ip.String() != "192.0.2.1" {
		t.Fatalf("clientIP = %v", ip)
	}
}

func TestOrigin_NilInfo(t *testing.T) {
	var ri *RequestInfo
	if o := ri.Origin(); o != (Origin{}) {
		t.Fatalf("expected zero origin, got %#v", o)
	}
}

func TestInitGeo_EmptyPathDisables(t *testing.T) {
	if err := InitGeo(""); err != nil {
		t.Fatalf("InitGeo(\"\") = %v", err)
	}
	if err := InitGeo("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}
