package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/tburn/internal/model"
)

// DefaultMode labels records that carry no mode.
const DefaultMode = "default"

// Summarize computes totals and per-model, per-mode and per-day breakdowns
// in a single pass. Days are UTC calendar dates of the usage time.
func Summarize(records []model.UsageRecord) model.Summary {
	sum := model.Summary{
		PerModel: make(map[string]model.ModelStats),
		PerMode:  make(map[string]model.ModeStats),
		PerDay:   make(map[string]model.DayStats),
	}
	dayModels := make(map[string]map[string]struct{})

	for _, r := range records {
		sum.TotalSessions++
		sum.TotalAmount += r.Amount
		sum.TotalCost += r.CostMoney
		sum.Tokens.Add(r.Tokens)

		ms := sum.PerModel[r.ModelName]
		ms.Model = r.ModelName
		ms.Count++
		ms.Amount += r.Amount
		ms.Cost += r.CostMoney
		ms.Tokens.Add(r.Tokens)
		sum.PerModel[r.ModelName] = ms

		mode := r.Mode
		if mode == "" {
			mode = DefaultMode
		}
		md := sum.PerMode[mode]
		md.Mode = mode
		md.Count++
		md.Amount += r.Amount
		md.Cost += r.CostMoney
		sum.PerMode[mode] = md

		day := time.Unix(r.UsageTime, 0).UTC().Format("2006-01-02")
		ds := sum.PerDay[day]
		ds.Date = day
		ds.Count++
		ds.Amount += r.Amount
		ds.Cost += r.CostMoney
		sum.PerDay[day] = ds

		set, ok := dayModels[day]
		if !ok {
			set = make(map[string]struct{})
			dayModels[day] = set
		}
		set[r.ModelName] = struct{}{}
	}

	for day, set := range dayModels {
		ds := sum.PerDay[day]
		ds.Models = make([]string, 0, len(set))
		for m := range set {
			ds.Models = append(ds.Models, m)
		}
		sort.Strings(ds.Models)
		sum.PerDay[day] = ds
	}

	return sum
}

// SortedModels returns the per-model stats by amount descending.
func SortedModels(s model.Summary) []model.ModelStats {
	out := make([]model.ModelStats, 0, len(s.PerModel))
	for _, ms := range s.PerModel {
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// SortedModes returns the per-mode stats by amount descending.
func SortedModes(s model.Summary) []model.ModeStats {
	out := make([]model.ModeStats, 0, len(s.PerMode))
	for _, ms := range s.PerMode {
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}

// SortedDays returns the per-day stats, most recent first.
func SortedDays(s model.Summary) []model.DayStats {
	out := make([]model.DayStats, 0, len(s.PerDay))
	for _, ds := range s.PerDay {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// FilterSince returns records whose usage time is at or after since.
// A zero since returns records unchanged.
func FilterSince(records []model.UsageRecord, since time.Time) []model.UsageRecord {
	if since.IsZero() {
		return records
	}
	cutoff := since.Unix()
	var result []model.UsageRecord
	for _, r := range records {
		if r.UsageTime < cutoff {
			continue
		}
		result = append(result, r)
	}
	return result
}
