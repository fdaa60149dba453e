package translate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultMaxChunkChars = 4000

// Split cuts text into chunks of at most max runes. Cuts fall on paragraph
// breaks; a single paragraph longer than max is cut after the last sentence
// end that fits, and only a sentence longer than max is cut mid-sentence.
func Split(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChunkChars
	}

	var (
		chunks []string
		cur    []string
		size   int
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n\n"))
			cur, size = nil, 0
		}
	}

	for _, p := range paragraphs(text) {
		n := utf8.RuneCountInString(p)
		if n > max {
			flush()
			chunks = append(chunks, splitLong(p, max)...)
			continue
		}

		sep := 0
		if len(cur) > 0 {
			sep = 2
		}
		if size+sep+n > max {
			flush()
			sep = 0
		}
		cur = append(cur, p)
		size += sep + n
	}
	flush()

	return chunks
}

func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitLong(p string, max int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0

	for _, s := range sentences(p) {
		n := utf8.RuneCountInString(s)
		if curLen > 0 && curLen+n > max {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
		if n > max {
			out = append(out, hardSplit(s, max)...)
			continue
		}
		cur.WriteString(s)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}

// sentences splits after terminal punctuation, keeping the trailing space
// with the sentence so concatenation restores the paragraph.
func sentences(p string) []string {
	var out []string
	start := 0
	runes := []rune(p)
	for i, r := range runes {
		if !isSentenceEnd(r) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isSentenceEnd(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) && !isCJKEnd(r) {
			continue
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j > start {
			out = append(out, string(runes[start:j]))
			start = j
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

func isCJKEnd(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』':
		return true
	}
	return false
}

func hardSplit(s string, max int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > max {
		cut := max
		for i := max; i > max/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if t := strings.TrimSpace(string(runes)); t != "" {
		out = append(out, t)
	}
	return out
}
