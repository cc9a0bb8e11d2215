// Package privacy redacts web app URLs before they reach logs or clients.
// A deployed Apps Script URL grants write access to the sheet, so its
// deployment id is treated as a secret.
package privacy

import (
	"net/url"
	"regexp"
	"strings"
)

// Pre-compiled patterns
var (
	// URL pattern for finding URLs in text
	urlPattern = regexp.MustCompile(`\bhttps?://[^\s"']+`)
)

// keepChars is how much of a secret path segment stays visible
const keepChars = 4

// ScrubMessage replaces every URL in message with its redacted form
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, RedactURL)
}

// RedactURL keeps the scheme, host and path shape of rawURL and masks
// credentials, query values and the deployment id of /macros/s/<id>/ paths.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "[redacted-url]"
	}

	u.User = nil
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q.Set(k, "redacted")
		}
		u.RawQuery = q.Encode()
	}

	// Work on the escaped form so the mask survives String() unescaped.
	segments := strings.Split(u.EscapedPath(), "/")
	for i := 2; i < len(segments); i++ {
		if segments[i-1] == "s" && segments[i-2] == "macros" {
			segments[i] = mask(segments[i])
		}
	}
	raw := strings.Join(segments, "/")
	path, err := url.PathUnescape(raw)
	if err != nil {
		return "[redacted-url]"
	}
	u.Path = path
	u.RawPath = raw

	return u.String()
}

func mask(s string) string {
	if len(s) <= keepChars {
		return "***"
	}
	return s[:keepChars] + "***"
}
