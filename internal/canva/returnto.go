package canva

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
)

// DefaultReturnPath is where users land when no usable return path exists.
const DefaultReturnPath = "/order-of-service"

// SanitizeReturnPath resolves returnTo against origin and returns the
// path, query and fragment when the result stays on origin. Anything else
// collapses to DefaultReturnPath.
func SanitizeReturnPath(returnTo, origin string) string {
	if returnTo == "" {
		return DefaultReturnPath
	}
	// Browsers treat '\' as '/', so "/\evil.com" would leave the site.
	if strings.ContainsRune(returnTo, '\\') || strings.IndexFunc(returnTo, unicode.IsControl) >= 0 {
		return DefaultReturnPath
	}

	base, err := url.Parse(origin)
	if err != nil || config.Origin(base) == "" {
		return DefaultReturnPath
	}
	ref, err := url.Parse(returnTo)
	if err != nil {
		return DefaultReturnPath
	}

	resolved := base.ResolveReference(ref)
	if config.Origin(resolved) != config.Origin(base) || resolved.User != nil {
		return DefaultReturnPath
	}

	path := resolved.EscapedPath()
	if path == "" {
		path = "/"
	}
	if strings.HasPrefix(path, "//") {
		return DefaultReturnPath
	}
	if resolved.RawQuery != "" {
		path += "?" + resolved.RawQuery
	}
	if resolved.Fragment != "" {
		path += "#" + resolved.EscapedFragment()
	}
	return path
}

// withStatus appends canvaStatus and reason to a sanitized return path. The
// caller's query parameters keep their order and encoding.
func withStatus(path, status, reason string) string {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: DefaultReturnPath}
	}
	u.RawQuery = setQueryParam(u.RawQuery, "canvaStatus", status)
	if reason != "" {
		u.RawQuery = setQueryParam(u.RawQuery, "reason", reason)
	}
	return u.String()
}

// setQueryParam replaces the first key parameter in rawQuery in place,
// dropping any repeats, or appends it when absent.
func setQueryParam(rawQuery, key, value string) string {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}

	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	found := false
	for _, part := range parts {
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil && decoded == key {
			if !found {
				kept = append(kept, pair)
				found = true
			}
			continue
		}
		kept = append(kept, part)
	}
	if !found {
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// ErrorRedirect is the sanitized return path for returnTo, tagged with an
// error status and reason.
func ErrorRedirect(returnTo, origin, reason string) string {
	return withStatus(SanitizeReturnPath(returnTo, origin), StatusError, reason)
}
