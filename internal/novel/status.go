package novel

import (
	"encoding/json"
	"strings"
)

type Status string

const (
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
	StatusHiatus    Status = "HIATUS"
	StatusDropped   Status = "DROPPED"
)

var statusWords = []struct {
	status Status
	words  []string
}{
	{StatusCompleted, []string{"completed", "complete", "finished", "end", "완결", "完结", "完本"}},
	{StatusHiatus, []string{"hiatus", "paused", "on hold", "휴재"}},
	{StatusDropped, []string{"dropped", "cancelled", "canceled", "discontinued", "abandoned"}},
	{StatusOngoing, []string{"ongoing", "on going", "updating", "serializing", "연재", "连载"}},
}

// ParseStatus maps free-text status labels to a Status. Unknown text is ONGOING.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusOngoing
	}

	switch Status(strings.ToUpper(s)) {
	case StatusOngoing, StatusCompleted, StatusHiatus, StatusDropped:
		return Status(strings.ToUpper(s))
	}

	for _, sw := range statusWords {
		for _, w := range sw.words {
			if strings.Contains(s, w) {
				return sw.status
			}
		}
	}

	return StatusOngoing
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}
