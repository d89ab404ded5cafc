package requestinfo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func TestEnrichAttachesInfo(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", chromeMac)
	req.Header.Set("Accept-Language", "en-US;q=0.9, fr")
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "Chrome", got.UA.Browser)
	assert.Equal(t, "124", got.UA.Version)
	assert.Equal(t, "macOS", got.UA.OS)
	assert.Equal(t, "Desktop", got.UA.Device)
	assert.Equal(t, "en-us", got.UA.PrimaryLang)
	assert.Equal(t, "198.51.100.7", got.Geo.IP.String())
	assert.False(t, got.Timestamp.IsZero())
}

func TestClientIPFallbacks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req).String())

	req.Header.Set("X-Real-Ip", "192.0.2.44")
	assert.Equal(t, "192.0.2.44", clientIP(req).String())
}

func TestClientProjection(t *testing.T) {
	var nilInfo *RequestInfo
	assert.Empty(t, nilInfo.Client())

	info := &RequestInfo{
		UA:  UA{Browser: "Firefox", Device: "Phone", IsBot: true, PrimaryLang: "de"},
		Geo: Geo{IP: net.ParseIP("203.0.113.5"), CountryISO: "DE", City: "Berlin"},
	}
	c := info.Client()
	assert.Equal(t, "203.0.113.5", c.IP)
	assert.Equal(t, "DE", c.Country)
	assert.Equal(t, "Berlin", c.City)
	assert.True(t, c.Bot)
}

func TestInitGeo(t *testing.T) {
	assert.NoError(t, InitGeo(""))
	assert.Error(t, InitGeo("/does/not/exist.mmdb"))
}

func TestPrimaryLang(t *testing.T) {
	assert.Equal(t, "", primaryLang(""))
	assert.Equal(t, "es", primaryLang("ES;q=0.8,en"))
}
