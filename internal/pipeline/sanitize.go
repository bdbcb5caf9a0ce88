package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename returns a name safe to use on the filesystem: NFKD-folded
// to ASCII (accents keep their base letter, other non-ASCII is dropped), path separators and whitespace runs become "_", anything outside
// [A-Za-z0-9._-] removed, leading and trailing "." and "_" trimmed.
// It may return "".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}
