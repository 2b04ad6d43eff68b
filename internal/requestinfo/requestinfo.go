//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, IP + geolocation, URL, and timestamp).
//  These structs are inert, so they are safe to log or JSON-encode.
//
//  The gateway uses them to audit where context-carrying deep links are
//  opened from: the link importer logs Origin() for every import.
//
//  Dependencies
//  • github.com/avct/uasurfer            (UA parsing)
//  • github.com/oschwald/geoip2-golang   (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.
type UA struct {
	Raw         string // Entire User-Agent header
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "macOS", "Windows", "Android", "iOS", etc.
	Device      string // "Desktop", "Phone", "Tablet", ...
	IsBot       bool
	PrimaryLang string // First tag from Accept-Language ("en", "es", ...)
}

// Geo holds IP-based geolocation hints.  Empty when no database is loaded
// or the address has no match.
type Geo struct {
	IP         net.IP
	CountryISO string
	City       string
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	URL       *url.URL // read-only
	Timestamp time.Time
}

// Origin is a compact, loggable summary of where a request came from.
type Origin struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	Browser string `json:"browser,omitempty"`
	Device  string `json:"device,omitempty"`
	Bot     bool   `json:"bot,omitempty"`
}

// Origin summarises ri.  A nil receiver yields the zero Origin.
func (ri *RequestInfo) Origin() Origin {
	if ri == nil {
		return Origin{}
	}
	o := Origin{
		Country: ri.Geo.CountryISO,
		Browser: ri.UA.Browser,
		Device:  ri.UA.Device,
		Bot:     ri.UA.IsBot,
	}
	if ri.Geo.IP != nil {
		o.IP = ri.Geo.IP.String()
	}
	return o
}

// Fields returns o as zap fields.
func (o Origin) Fields() []zap.Field {
	return []zap.Field{
		zap.String("ip", o.IP),
		zap.String("country", o.Country),
		zap.String("browser", o.Browser),
		zap.String("device", o.Device),
		zap.Bool("bot", o.Bot),
	}
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

var (
	geoMu     sync.RWMutex
	geoReader *geoip2.Reader
)

// InitGeo opens a GeoLite2-City database.  An empty path disables geo
// lookups.  Call CloseGeo on shutdown.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoMu.Lock()
	geoReader = r
	geoMu.Unlock()
	return nil
}

// CloseGeo releases the database opened by InitGeo.
func CloseGeo() {
	geoMu.Lock()
	defer geoMu.Unlock()
	if geoReader != nil {
		_ = geoReader.Close()
		geoReader = nil
	}
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{}

// FromContext returns the pointer previously stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo returns ctx carrying ri.  Enrich uses it; tests may too.
func WithInfo(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}

	return UA{
		Raw:         uaHeader,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     trimVersion(u.Browser.Version),
		OS:          osName,
		Device:      deviceTypeToString(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// trimVersion builds "major.minor.patch" and removes trailing ".0".
func trimVersion(v uasurfer.Version) string {
	out := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	for strings.HasSuffix(out, ".0") {
		out = strings.TrimSuffix(out, ".0")
	}
	if out == "" {
		return "0"
	}
	return out
}

func deviceTypeToString(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.Split(al, ",")[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	geoMu.RLock()
	r := geoReader
	geoMu.RUnlock()

	if r == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := r.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
