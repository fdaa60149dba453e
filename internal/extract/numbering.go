package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	chapRe      = regexp.MustCompile(`(?i)(?:vol(?:ume)?[_\-\s]*\d+[_\-\s]*)?\b(?:chapter|ch|ep(?:isode)?)[_\-\s.]*0*([0-9]+)`)
	chapterDash = regexp.MustCompile(`(?i)(?:chapter|episode)[_\-]?0*([0-9]+)`)
	titlePrefix = regexp.MustCompile(`^\s*0*(\d+)\s*[.\-: ]`)
	cjkNumber   = regexp.MustCompile(`第\s*0*([0-9]+)\s*[章话話回]|0*([0-9]+)\s*화`)
)

// ParseChapterNumber pulls the chapter number out of a link's text or href.
// Text wins over the URL since URLs often carry database ids.
func ParseChapterNumber(href, title string) (int, bool) {
	if m := chapRe.FindStringSubmatch(title); m != nil {
		return atoi(m[1])
	}
	if m := cjkNumber.FindStringSubmatch(title); m != nil {
		if m[1] != "" {
			return atoi(m[1])
		}
		return atoi(m[2])
	}
	if m := titlePrefix.FindStringSubmatch(title); m != nil {
		return atoi(m[1])
	}
	if m := chapterDash.FindStringSubmatch(strings.ToLower(href)); m != nil {
		return atoi(m[1])
	}
	return 0, false
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

type parsedNumber struct {
	Position int
	Parsed   int
}

// Span is an inclusive range of missing chapter numbers.
type Span struct {
	From int
	To   int
}

type Mismatch struct {
	Position int
	Parsed   int
}

// Numbering compares positional numbers with numbers parsed from link text.
type Numbering struct {
	Checked    int
	Gaps       []Span
	Duplicates []int
	Mismatches []Mismatch
}

func (n Numbering) OK() bool {
	return len(n.Gaps) == 0 && len(n.Duplicates) == 0 && len(n.Mismatches) == 0
}

// ValidateNumbering reports parsed numbers that are missing from the parsed
// sequence, parsed more than once or that disagree with the position. A
// constant offset (a site starting at chapter 0 or listing a prologue first)
// is not a mismatch.
func ValidateNumbering(parsed []parsedNumber) Numbering {
	out := Numbering{Checked: len(parsed)}
	if len(parsed) == 0 {
		return out
	}

	count := map[int]int{}
	offsets := map[int]int{}
	for _, p := range parsed {
		count[p.Parsed]++
		offsets[p.Parsed-p.Position]++
	}

	offset, best := 0, -1
	for o, c := range offsets {
		if c > best || (c == best && abs(o) < abs(offset)) {
			offset, best = o, c
		}
	}

	nums := make([]int, 0, len(count))
	for n, c := range count {
		nums = append(nums, n)
		if c > 1 {
			out.Duplicates = append(out.Duplicates, n)
		}
	}
	sort.Ints(nums)
	sort.Ints(out.Duplicates)

	for i := 1; i < len(nums); i++ {
		if nums[i]-nums[i-1] > 1 {
			out.Gaps = append(out.Gaps, Span{From: nums[i-1] + 1, To: nums[i] - 1})
		}
	}

	for _, p := range parsed {
		if p.Parsed-p.Position != offset {
			out.Mismatches = append(out.Mismatches, Mismatch(p))
		}
	}

	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
