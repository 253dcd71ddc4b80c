package pipeline

import "github.com/theirongolddev/tburn/internal/model"

// mergeRecords applies fetched records to dst in order. A new session id
// counts as collected; an existing one with a different usage time is
// overwritten and counts as updated; identical usage times are left alone.
func mergeRecords(dst *model.UsageStore, records []model.UsageRecord) (collected, updated int) {
	for _, rec := range records {
		if rec.SessionID == "" {
			continue
		}
		prev, ok := dst.Records[rec.SessionID]
		switch {
		case !ok:
			dst.Records[rec.SessionID] = rec
			collected++
		case prev.UsageTime != rec.UsageTime:
			dst.Records[rec.SessionID] = rec
			updated++
		}
	}
	return collected, updated
}
