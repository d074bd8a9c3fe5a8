//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata for the
//  audit trail (user-agent fingerprint, client IP, geolocation hints, path,
//  and timestamp).  These structs are inert.  They contain no pointers to
//  database handles or large buffers, so they are safe to log or
//  JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"go.uber.org/zap"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Raw         string `json:"raw"`
	Browser     string `json:"browser"`      // "Chrome", "Firefox", "Safari", ...
	Version     string `json:"version"`      // "124.0.6367"
	OS          string `json:"os"`           // "MacOSX", "Windows", "Android", ...
	OSVersion   string `json:"os_version"`   // "14.5", "11"
	Device      string `json:"device"`       // "Desktop", "Phone", "Tablet", ...
	Platform    string `json:"platform"`     // "Mac", "Windows", "Linux", ...
	IsBot       bool   `json:"is_bot"`       // crawler signature match
	PrimaryLang string `json:"primary_lang"` // first Accept-Language tag
}

// Geo holds IP-based geolocation hints.  Country and city stay empty when
// no GeoLite2 database is configured or the address has no match.
type Geo struct {
	IP         net.IP `json:"ip"`
	CountryISO string `json:"country_iso,omitempty"`
	City       string `json:"city,omitempty"`
}

// RequestInfo is stored in the request context by Enricher.Middleware.
type RequestInfo struct {
	UA        UA        `json:"ua"`
	Geo       Geo       `json:"geo"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Fields renders the audit-relevant subset as zap fields.  A nil receiver
// yields no fields, so callers need not check FromContext's result.
func (ri *RequestInfo) Fields() []zap.Field {
	if ri == nil {
		return nil
	}
	fields := []zap.Field{
		zap.Stringer("ip", ri.Geo.IP),
		zap.String("browser", ri.UA.Browser),
		zap.String("device", ri.UA.Device),
		zap.Bool("bot", ri.UA.IsBot),
	}
	if ri.Geo.CountryISO != "" {
		fields = append(fields, zap.String("country", ri.Geo.CountryISO))
	}
	return fields
}

type ctxKey struct{}

// WithInfo returns a child context carrying ri.
func WithInfo(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

// FromContext returns the pointer previously stored by the middleware, or
// nil if it has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(raw, acceptLang string) UA {
	u := uasurfer.Parse(raw)

	return UA{
		Raw:         raw,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     versionString(u.Browser.Version),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion:   versionString(u.OS.Version),
		Device:      deviceName(u.DeviceType),
		Platform:    strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// versionString renders 17.0.0 as "17", 17.3.0 as "17.3", and 17.3.1 as
// "17.3.1".  An all-zero version renders as "".
func versionString(v uasurfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	case v.Minor != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	default:
		return strconv.Itoa(v.Major)
	}
}

func deviceName(dt uasurfer.DeviceType) string {
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

// primaryLang extracts the first language tag before any ";q=" weight.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
