package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL_TrackingParamsDropped(t *testing.T) {
	first := URL("https://Example.COM/path?utm_source=x&a=1")
	second := URL("https://example.com/path/?a=1&utm_medium=y")

	assert.Equal(t, "https://example.com/path?a=1", first)
	assert.Equal(t, first, second)
}

func TestURL_PortAndTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://example.com/page", URL("http://example.com:80/page/"))
	assert.Equal(t, "https://example.com/", URL("https://example.com:443/"))
}

func TestURL_NonDefaultPortPreserved(t *testing.T) {
	assert.Equal(t, "http://example.com:8080/page", URL("http://example.com:8080/page"))
}

func TestURL_Idempotent(t *testing.T) {
	cases := []string{
		"https://Example.COM/path?utm_source=x&a=1",
		"http://example.com:80/page/",
		"https://example.com:443/",
		"https://example.com/path?b=2&a=1",
	}
	for _, c := range cases {
		once := URL(c)
		twice := URL(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", c)
	}
}

func TestURL_RemovingTrackingParamBeforeNormalizeMatchesDirect(t *testing.T) {
	withTracking := URL("https://example.com/path?a=1&utm_campaign=spring")
	withoutTracking := URL("https://example.com/path?a=1")
	assert.Equal(t, withoutTracking, withTracking)
}

func TestURL_UnparsableReturnsUnchanged(t *testing.T) {
	// A control character in the host makes net/url.Parse fail.
	bad := "http://exa\x7fmple.com/a"
	assert.Equal(t, bad, URL(bad))
}

func TestURL_OtherQueryParamsPreserveOrder(t *testing.T) {
	assert.Equal(t, "https://example.com/search?z=1&a=2&m=3", URL("https://example.com/search?z=1&a=2&m=3"))
}
