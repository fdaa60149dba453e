package chapters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

// Filter selects chapters by number. rng is "5-12" (either bound may be
// omitted), list is "1,3,5". An empty selection returns all.
func Filter(all []novel.ChapterRef, rng, list string) ([]novel.ChapterRef, error) {
	if rng == "" && list == "" {
		return all, nil
	}

	keep, err := Numbers(rng, list)
	if err != nil {
		return nil, err
	}

	var out []novel.ChapterRef
	for _, ch := range all {
		if keep.Has(ch.Number) {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Numbers parses a range and a list into one selection.
func Numbers(rng, list string) (Set, error) {
	s := Set{}
	if rng != "" {
		start, end, err := parseRange(rng)
		if err != nil {
			return Set{}, err
		}
		s.ranges = append(s.ranges, [2]int{start, end})
	}
	if list != "" {
		for _, n := range strings.Split(list, ",") {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if strings.Contains(n, "-") {
				start, end, err := parseRange(n)
				if err != nil {
					return Set{}, err
				}
				s.ranges = append(s.ranges, [2]int{start, end})
				continue
			}
			idx, err := atoi(n)
			if err != nil || idx <= 0 {
				return Set{}, fmt.Errorf("invalid chapter number %q", n)
			}
			s.ranges = append(s.ranges, [2]int{idx, idx})
		}
	}
	return s, nil
}

func parseRange(rng string) (int, int, error) {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid chapter range %q (want START-END)", rng)
	}

	start, end := 1, 0
	if p := strings.TrimSpace(parts[0]); p != "" {
		n, err := atoi(p)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid chapter range %q", rng)
		}
		start = n
	}
	if p := strings.TrimSpace(parts[1]); p != "" {
		n, err := atoi(p)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid chapter range %q", rng)
		}
		end = n
	}
	if end != 0 && start > end {
		return 0, 0, fmt.Errorf("invalid chapter range %q (start after end)", rng)
	}
	return start, end, nil
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
