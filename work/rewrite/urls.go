package rewrite

import (
	"net/url"
	"strings"

	"tracktag-proxy/work/logger"
)

// ProxyURLFunc maps an absolute origin URL to its proxied form. The proxy
// server supplies a closure that carries its own base address and the active
// session ID.
type ProxyURLFunc func(absolute string) string

// isPlaylistRef reports whether a reference points at another playlist:
// its path ends in .m3u8, optionally followed by a query string. Anything
// else is a media segment or auxiliary resource and is never proxied, which
// bounds proxy traffic to playlist-sized payloads.
func isPlaylistRef(ref string) bool {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		ref = ref[:i]
	}
	return strings.HasSuffix(strings.ToLower(ref), ".m3u8")
}

// isProxiedRef reports whether a reference already points at this proxy's
// playlist endpoint, so a second rewrite pass leaves it untouched.
func isProxiedRef(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Path == "/hls" && u.Query().Get("url") != ""
}

// resolveRef resolves a possibly-relative playlist reference against the
// playlist's own fetch URL. Resolution failures fall back to the original
// reference; a broken line is forwarded as-is rather than dropped.
func resolveRef(ref string, base *url.URL) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		logger.Debug("{rewrite - resolveRef} unparsable reference %q: %v", ref, err)
		return ref
	}
	return base.ResolveReference(rel).String()
}

// proxyRef turns one playlist reference into its proxied absolute form,
// returning the input unchanged when it is not a playlist reference or is
// already proxied.
func proxyRef(ref string, base *url.URL, proxyURL ProxyURLFunc) string {
	if !isPlaylistRef(ref) || isProxiedRef(ref) {
		return ref
	}
	return proxyURL(resolveRef(ref, base))
}
