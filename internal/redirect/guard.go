package redirect

import (
	"net"
	"net/url"
	"strings"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// loopbackHosts are host values (not addresses) that are always rejected
// regardless of how they resolve.
var loopbackHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// privateIPv4Prefixes mirrors the teacher's ingestion-time host check,
// relocated here: the spec places this defense at redirect time, not at
// ingestion time, so a URL may be accepted on POST and still be refused a
// redirect later if its host is a literal IPv4 address in one of these
// ranges. The match is a string prefix on the host; hostnames are not
// resolved.
var privateIPv4Prefixes = []string{
	"10.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"192.168.",
	"169.254.",
	"127.",
}

// suspiciousTLDs is a hardcoded minimal policy list, not a security
// control — see the spec's open-question note on this exact list.
var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf"}

// stableHostAllowlist drives the 301-vs-302 choice: hosts here are known
// not to change their canonical target, so a redirect to them may be
// cached permanently by clients.
var stableHostAllowlist = map[string]struct{}{
	"youtube.com":     {},
	"youtu.be":        {},
	"github.com":      {},
	"gitlab.com":      {},
	"twitter.com":     {},
	"x.com":           {},
	"facebook.com":    {},
	"instagram.com":   {},
	"linkedin.com":    {},
	"medium.com":      {},
	"stackoverflow.com": {},
}

// CheckOpenRedirect enforces the open-redirect defense of 4.H step 4:
// scheme restricted to http/https, host not loopback or a private IPv4
// range, TLD not in the suspicious set.
func CheckOpenRedirect(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.ErrInvalidRedirect
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return domain.ErrInvalidRedirect
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return domain.ErrInvalidRedirect
	}
	if _, blocked := loopbackHosts[host]; blocked {
		return domain.ErrInvalidRedirect
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return domain.ErrInvalidRedirect
	}
	for _, prefix := range privateIPv4Prefixes {
		if strings.HasPrefix(host, prefix) {
			return domain.ErrInvalidRedirect
		}
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return domain.ErrInvalidRedirect
		}
	}

	return nil
}

// ChooseStatusCode picks 301 for a redirect whose effective host (after
// stripping a leading "www.") is in the small known-stable allowlist, 302
// otherwise.
func ChooseStatusCode(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 302
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if _, stable := stableHostAllowlist[host]; stable {
		return 301
	}
	return 302
}
