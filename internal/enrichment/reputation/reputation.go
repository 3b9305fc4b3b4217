// Package reputation is the pluggable, fail-open URL-reputation probe
// consulted by createShort. Its internals are explicitly out of scope;
// this package only fixes the narrow interface the URL service depends on
// and a default implementation that never blocks ingestion.
package reputation

import "context"

// Checker decides whether a submitted URL is known-malicious. A checker
// implementation is expected to fail open: on its own error it should
// report (false, err) and the caller logs and proceeds rather than
// rejecting the submission.
type Checker interface {
	IsMalicious(ctx context.Context, rawURL string) (bool, error)
}

// AlwaysAllow is the default Checker: it never flags a URL and never
// errors, used until a real scanning backend is configured.
type AlwaysAllow struct{}

func (AlwaysAllow) IsMalicious(context.Context, string) (bool, error) {
	return false, nil
}
