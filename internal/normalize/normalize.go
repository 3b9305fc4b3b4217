// Package normalize canonicalizes a user-supplied URL into the stable key
// the URL service deduplicates on.
package normalize

import (
	"net/url"
	"strings"
)

// trackingParams is the set of query parameter names stripped during
// normalization because they carry marketing noise rather than
// destination-identifying state.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"dclid":        {},
	"source":       {},
	"medium":       {},
	"campaign":     {},
}

var defaultPortByScheme = map[string]string{
	"http":  "80",
	"https": "443",
}

// URL produces the normalized form of original. If original does not parse
// as a URL, it is returned unchanged — rejecting malformed input is the
// ingestion layer's job, not the normalizer's.
func URL(original string) string {
	u, err := url.Parse(original)
	if err != nil {
		return original
	}

	u.Host = strings.ToLower(u.Host)
	stripDefaultPort(u)
	stripTrailingSlash(u)
	stripTrackingParams(u)

	return u.String()
}

func stripDefaultPort(u *url.URL) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return
	}
	if defaultPortByScheme[strings.ToLower(u.Scheme)] == port {
		u.Host = host
	}
}

func stripTrailingSlash(u *url.URL) {
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
}

// stripTrackingParams drops tracking-set query parameters while preserving
// the relative order of everything else. url.Values is a map, so we rebuild
// the query string from the original key order rather than ranging over it.
func stripTrackingParams(u *url.URL) {
	if u.RawQuery == "" {
		return
	}

	pairs := strings.Split(u.RawQuery, "&")
	kept := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			key = pair[:idx]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			continue
		}
		kept = append(kept, pair)
	}
	u.RawQuery = strings.Join(kept, "&")
}
