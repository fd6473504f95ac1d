//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata (user-agent fingerprint, IP + geolocation, locale,
//  URL, and timestamp).  These structs are inert and safe to log.
//
//  The locale feeds the commerce client's @inContext variables, so a
//  visitor from Canada with a French browser sees CA prices and FR copy.
//
//  Dependencies
//  • github.com/avct/uasurfer           (via internal/ua)
//  • github.com/oschwald/geoip2-golang  (MaxMind lookup)
//  • golang.org/x/text/language         (Accept-Language weights)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/text/language"

	"github.com/yanizio/storefront/internal/commerce"
	"github.com/yanizio/storefront/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.  Empty when no DB is loaded or
// the address has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA          ua.Info
	Geo         Geo
	PrimaryLang string // highest-weighted Accept-Language tag, lower-case ("en-ca")
	URL         *url.URL
	Timestamp   time.Time
}

// I18n derives the commerce localisation context, falling back to
// commerce.DefaultI18n piecewise.
func (ri *RequestInfo) I18n() commerce.I18n {
	out := commerce.DefaultI18n
	if ri == nil {
		return out
	}
	if c := strings.ToUpper(ri.Geo.CountryISO); len(c) == 2 {
		out.Country = c
	}
	lang, _, _ := strings.Cut(ri.PrimaryLang, "-")
	if len(lang) == 2 {
		out.Language = strings.ToUpper(lang)
	}
	return out
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// countryReader is the subset of *geoip2.Reader used here.
type countryReader interface {
	Country(net.IP) (*geoip2.Country, error)
}

// geoReader is a process-wide MaxMind handle, nil when geo is disabled.
var geoReader countryReader

// InitGeo opens a GeoLite2 Country or City database.  An empty path leaves
// geo lookups disabled.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoReader = r
	return nil
}

type ctxKey struct{}

// FromContext returns the pointer stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// primaryLang returns the highest-weighted Accept-Language tag, lower-case.
// Malformed headers, wildcards, and q=0 entries yield "".
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(al)
	if err != nil || len(tags) == 0 || tags[0] == language.Und {
		return ""
	}
	return strings.ToLower(tags[0].String())
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.Country(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode}
}
