// Package chapters selects chapters by number for the stage commands.
package chapters

import (
	"fmt"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

// Set is a union of inclusive number ranges; an end of 0 is open.
type Set struct {
	ranges [][2]int
}

// Empty reports a selection that matches every chapter.
func (s Set) Empty() bool {
	return len(s.ranges) == 0
}

func (s Set) Has(n int) bool {
	if s.Empty() {
		return true
	}
	for _, r := range s.ranges {
		if n >= r[0] && (r[1] == 0 || n <= r[1]) {
			return true
		}
	}
	return false
}

// Map expands the selection over the given chapters into the lookup form
// the scraper and translator take. A nil map selects everything.
func (s Set) Map(numbers []int) map[int]bool {
	if s.Empty() {
		return nil
	}
	m := map[int]bool{}
	for _, n := range numbers {
		if s.Has(n) {
			m[n] = true
		}
	}
	return m
}

// Label is the progress prefix for a chapter.
func Label(ref novel.ChapterRef) string {
	if ref.Title == "" {
		return fmt.Sprintf("Ch.%d", ref.Number)
	}
	return fmt.Sprintf("Ch.%d %s", ref.Number, ref.Title)
}

func RefNumbers(refs []novel.ChapterRef) []int {
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = r.Number
	}
	return out
}

func RawNumbers(chs []novel.RawChapter) []int {
	out := make([]int, len(chs))
	for i, c := range chs {
		out[i] = c.Number
	}
	return out
}
