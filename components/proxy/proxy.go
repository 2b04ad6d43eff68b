// components/proxy/proxy.go
//
// Raw pass-through to the upstream API.
//
// Context
// -------
// Any backend call without a dedicated component goes through /api/raw/*.
// The request is forwarded on the same decorated transport as every other
// upstream call, so the subject header is decided per request, including
// the users, subjects and schools carve-outs.  The browser's cookies never
// leave the gateway; the session's bearer token replaces them.
//
//------------------------------------------------------------------------------

package proxy

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/acl"
	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/scope"
)

// Prefix is the mount point stripped before forwarding.
const Prefix = "/api/raw"

var _ component.Component = (*Component)(nil)

// Component serves /api/raw/*.
type Component struct {
	d  component.Deps
	rp *httputil.ReverseProxy
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "proxy" }

func (c *Component) Init(d component.Deps) error {
	if d.Upstream == nil {
		return errors.New("proxy: upstream is required")
	}
	c.d = d
	base := d.Upstream.BaseURL()
	c.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, Prefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(base)
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			if h := scope.FromContext(pr.In.Context()); h != nil {
				pr.Out.Header.Set("Authorization", "Bearer "+h.Token())
			}
		},
		Transport:      d.Upstream.HTTPClient().Transport,
		ModifyResponse: c.afterResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zap.L().Warn("raw proxy", zap.String("path", r.URL.Path), zap.Error(err))
			component.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": http.StatusText(http.StatusBadGateway)})
		},
	}
	return nil
}

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(acl.RequireSession).Handle(Prefix+"/*", c.rp)
	return r
}

// afterResponse drops the session's cached slices after a successful
// write, since any of them may be affected.
func (c *Component) afterResponse(resp *http.Response) error {
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	if resp.StatusCode >= 300 || c.d.Slices == nil {
		return nil
	}
	if h := scope.FromContext(resp.Request.Context()); h != nil {
		c.d.Slices.InvalidateSession(h.SessionID())
	}
	return nil
}
