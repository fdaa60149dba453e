package translate

import (
	"regexp"
	"strings"
)

var (
	reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")

	rePreamble = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:sure|certainly|of course|okay)[,.!]?[^\n]*translat[^\n]*\n+`),
		regexp.MustCompile(`(?i)^(?:here(?:'s| is| are)|below is)[^\n]*translat[^\n]*\n+`),
		regexp.MustCompile(`(?i)^(?:\*\*)?(?:english )?translation(?:\*\*)?\s*:\s*(?:\*\*)?\s*`),
		regexp.MustCompile(`(?i)^(?:translated text|translated chapter)\s*:\s*`),
	}

	rePostamble = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\n+(?:---+\s*\n+)?(?:i hope (?:this|that|you)|let me know if|feel free to|if you (?:need|have|would like)|note:\s*(?:this|the) translation)[^\n]*$`),
		regexp.MustCompile(`(?i)\n+\(?(?:translator'?s? note|tl note)[^\n]*\)?\s*$`),
	}

	reBlankRun     = regexp.MustCompile(`\n{3,}`)
	reTrailingWS   = regexp.MustCompile(`[ \t]+\n`)
	reHorizontalWS = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean strips chat preambles and sign-offs the model wraps around the
// translation and normalizes blank lines so paragraphs are separated by
// exactly one empty line.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)

	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	for changed := true; changed; {
		changed = false
		for _, re := range rePreamble {
			if loc := re.FindStringIndex(s); loc != nil && loc[1] < len(s) {
				s = strings.TrimSpace(s[loc[1]:])
				changed = true
			}
		}
	}

	for _, re := range rePostamble {
		s = re.ReplaceAllString(s, "")
	}

	s = reTrailingWS.ReplaceAllString(s, "\n")
	s = reHorizontalWS.ReplaceAllString(s, " ")

	// models often answer with single newlines between paragraphs
	if !strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n", "\n\n")
	}
	s = reBlankRun.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
