//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, IP + geolocation, and timestamp).  These
//  structs are inert.  They contain no pointers to database handles or
//  large buffers, so they are safe to log or JSON-encode.
//
//  The contact component turns a RequestInfo into contact.Meta, which
//  travels with every submission to the delivery backends.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing, via internal/ua)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.
// These are best-effort and may be empty if the DB has no match.
type Geo struct {
	IP         net.IP // Client address after proxy resolution
	CountryISO string // "LV", "EE", "DE", ...
	City       string // "Riga", "Jēkabpils", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA          ua.Info
	Geo         Geo
	PrimaryLang string // First tag from Accept-Language ("lv", "en-gb", ...)
	Timestamp   time.Time
}

// Meta converts the info into the submission metadata record.
func (ri *RequestInfo) Meta() contact.Meta {
	if ri == nil {
		return contact.Meta{}
	}
	m := contact.Meta{
		UserAgent: ri.UA.Raw,
		Browser:   ri.UA.Browser,
		Device:    ri.UA.Device,
		Country:   ri.Geo.CountryISO,
		Language:  ri.PrimaryLang,
		IsBot:     ri.UA.IsBot,
	}
	if ri.Geo.IP != nil {
		m.ClientIP = ri.Geo.IP.String()
	}
	return m
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  It is safe for concurrent
// reads, which is all we ever perform.  Nil disables lookups.
var geoReader atomic.Pointer[geoip2.Reader]

// trustProxy enables X-Forwarded-For / X-Real-IP.  Only turn it on behind
// a proxy that overwrites those headers.
var trustProxy atomic.Bool

// InitGeo opens the GeoLite2-City database.  An empty path leaves geo
// lookups disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoReader.Store(r)
	return nil
}

// CloseGeo releases the GeoLite2 handle, if any.
func CloseGeo() error {
	if r := geoReader.Swap(nil); r != nil {
		return r.Close()
	}
	return nil
}

// SetTrustProxy toggles whether forwarding headers are honoured.
func SetTrustProxy(v bool) { trustProxy.Store(v) }

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo returns a copy of ctx carrying ri.  Tests use it to skip Enrich.
func WithInfo(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	r := geoReader.Load()
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
