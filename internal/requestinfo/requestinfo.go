//
//  internal/requestinfo/requestinfo.go
//
//  Per-request peer metadata (user-agent fingerprint, IP, geolocation)
//  collected once by the Enrich middleware and copied into
//  core.Context.Client by the transport adapters.  Values are inert and
//  safe to log.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/conductor/internal/core"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "macOS", "Windows", "Android", ...
	Device      string // "Desktop", "Phone", "Tablet", ...
	IsBot       bool
	PrimaryLang string // first tag from Accept-Language
}

// Geo holds best-effort geolocation hints.
type Geo struct {
	IP         net.IP
	CountryISO string
	City       string
}

// RequestInfo is what Enrich stores on the request context.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// Client projects the info onto the engine's context type.
func (i *RequestInfo) Client() core.Client {
	if i == nil {
		return core.Client{}
	}
	c := core.Client{
		Country: i.Geo.CountryISO,
		City:    i.Geo.City,
		Browser: i.UA.Browser,
		Device:  i.UA.Device,
		Lang:    i.UA.PrimaryLang,
		Bot:     i.UA.IsBot,
	}
	if i.Geo.IP != nil {
		c.IP = i.Geo.IP.String()
	}
	return c
}

/*──────────────────────────── geo database ────────────────────────────────*/

// geoReader is swapped atomically so a config reload can reopen it.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2-City database.  An empty path disables
// geolocation.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	if old := geoReader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

/*──────────────────────────── context helpers ─────────────────────────────*/

type ctxKey struct{}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

/*──────────────────────────── parsing ─────────────────────────────────────*/

func parseUA(uaHeader, acceptLang string) UA {
	u := uasurfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}

	return UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     trimVersion(u.Browser.Version),
		OS:          osName,
		Device:      deviceTypeToString(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// trimVersion builds "major.minor.patch" without trailing ".0" parts.
func trimVersion(v uasurfer.Version) string {
	parts := []string{
		strconv.Itoa(v.Major),
		strconv.Itoa(v.Minor),
		strconv.Itoa(v.Patch),
	}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
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
