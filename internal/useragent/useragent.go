// Package useragent extracts the client release from ambient network clients.
package useragent

import "strings"

// Prefix marks user agents sent by the ambient network client.
const Prefix = "ambient_network/"

// ExtractVersion returns the version token following Prefix, trimmed of
// surrounding whitespace. Any other user agent yields "". Header bytes that
// are not UTF-8 are replaced with U+FFFD so the result is always a valid
// metric label.
func ExtractVersion(ua string) string {
	rest, ok := strings.CutPrefix(ua, Prefix)
	if !ok {
		return ""
	}
	return strings.ToValidUTF8(strings.TrimSpace(rest), "\uFFFD")
}
