package pipeline

import "github.com/theirongolddev/tburn/internal/model"

// FetchWindow is the [Start, End] range, in unix seconds, requested from
// the usage endpoint in one collection cycle.
type FetchWindow struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// ComputeWindow derives the fetch range for a cycle. The first collection
// starts at the subscription start; later ones start overlap seconds before
// the previous collection. The end never passes now.
func ComputeWindow(s *model.UsageStore, sub model.SubscriptionWindow, now, overlap int64) FetchWindow {
	end := sub.EndTime
	if now < end {
		end = now
	}
	start := sub.StartTime
	if s != nil && s.LastUpdateTime > 0 {
		start = s.LastUpdateTime - overlap
	}
	return FetchWindow{Start: start, End: end}
}
