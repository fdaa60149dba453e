// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Make lowercases s, turns every run of characters outside [a-z0-9] into a
// single hyphen and trims hyphens from both ends.
//
// Titles with no ASCII letters or digits (e.g. CJK titles) would otherwise
// collapse to "", so they map to "n-<fnv32 of the title>".
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() > 0 {
		return b.String()
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("n-%08x", h.Sum32())
}
