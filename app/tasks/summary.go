package tasks

import (
	"sort"
	"time"
)

// SourceResult is the outcome of one source within a cycle. Error is set
// only when the source as a whole failed (fetch or search error).
type SourceResult struct {
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

type Summary struct {
	RunID     string                   `json:"run_id"`
	Kind      Kind                     `json:"kind"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
	Results   map[string]*SourceResult `json:"results"`
}

func newSummary(task Task) *Summary {
	return &Summary{
		RunID:     task.ID,
		Kind:      task.Kind,
		StartedAt: task.StartedAt,
		Results:   make(map[string]*SourceResult),
	}
}

func (s *Summary) source(name string) *SourceResult {
	result, ok := s.Results[name]
	if !ok {
		result = &SourceResult{}
		s.Results[name] = result
	}
	return result
}

// Sources returns the source names in sorted order.
func (s *Summary) Sources() []string {
	names := make([]string, 0, len(s.Results))
	for name := range s.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Summary) Totals() (created, duplicates, failed int) {
	for _, result := range s.Results {
		created += result.New
		duplicates += result.Duplicates
		failed += result.Failed
	}
	return created, duplicates, failed
}

func (s *Summary) FailedSources() []string {
	var names []string
	for _, name := range s.Sources() {
		if s.Results[name].Error != "" {
			names = append(names, name)
		}
	}
	return names
}
