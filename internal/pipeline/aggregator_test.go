package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/tburn/internal/model"
)

func day(t *testing.T, s string) int64 {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts.Unix()
}

func TestSummarize(t *testing.T) {
	records := []model.UsageRecord{
		{SessionID: "1", ModelName: "A", Mode: "chat", Amount: 10, CostMoney: 1.0,
			UsageTime: day(t, "2025-06-01T10:00:00Z"), Tokens: model.TokenCounts{Input: 100, Output: 10}},
		{SessionID: "2", ModelName: "A", Mode: "", Amount: 5, CostMoney: 0.5,
			UsageTime: day(t, "2025-06-01T23:59:59Z"), Tokens: model.TokenCounts{Input: 50}},
		{SessionID: "3", ModelName: "B", Mode: "builder", Amount: 2, CostMoney: 0.2,
			UsageTime: day(t, "2025-06-02T00:00:00Z"), Tokens: model.TokenCounts{CacheRead: 7}},
	}

	sum := Summarize(records)
	if sum.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d, want 3", sum.TotalSessions)
	}
	if sum.TotalAmount != 17 {
		t.Errorf("TotalAmount = %v, want 17", sum.TotalAmount)
	}
	if math.Abs(sum.TotalCost-1.7) > 1e-9 {
		t.Errorf("TotalCost = %v, want 1.7", sum.TotalCost)
	}
	if sum.Tokens.Total() != 167 {
		t.Errorf("Tokens.Total() = %d, want 167", sum.Tokens.Total())
	}

	a := sum.PerModel["A"]
	if a.Count != 2 || a.Amount != 15 || math.Abs(a.Cost-1.5) > 1e-9 {
		t.Errorf("PerModel[A] = %+v, want 2/15/1.5", a)
	}
	b := sum.PerModel["B"]
	if b.Count != 1 || b.Amount != 2 || math.Abs(b.Cost-0.2) > 1e-9 {
		t.Errorf("PerModel[B] = %+v, want 1/2/0.2", b)
	}

	if got := sum.PerMode[DefaultMode]; got.Count != 1 || got.Amount != 5 {
		t.Errorf("PerMode[default] = %+v", got)
	}
	if len(sum.PerMode) != 3 {
		t.Errorf("PerMode has %d entries, want 3", len(sum.PerMode))
	}

	d1 := sum.PerDay["2025-06-01"]
	if d1.Count != 2 || d1.Amount != 15 || len(d1.Models) != 1 || d1.Models[0] != "A" {
		t.Errorf("PerDay[2025-06-01] = %+v", d1)
	}
	d2 := sum.PerDay["2025-06-02"]
	if d2.Count != 1 || len(d2.Models) != 1 || d2.Models[0] != "B" {
		t.Errorf("PerDay[2025-06-02] = %+v", d2)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	if sum.TotalSessions != 0 || sum.TotalAmount != 0 {
		t.Fatalf("Summarize(nil) = %+v", sum)
	}
	if sum.PerModel == nil || sum.PerMode == nil || sum.PerDay == nil {
		t.Fatal("Summarize(nil) returned nil maps")
	}
}

func TestSortedHelpers(t *testing.T) {
	sum := Summarize([]model.UsageRecord{
		{SessionID: "1", ModelName: "small", Mode: "chat", Amount: 1, UsageTime: day(t, "2025-06-01T00:00:00Z")},
		{SessionID: "2", ModelName: "big", Mode: "builder", Amount: 9, UsageTime: day(t, "2025-06-03T00:00:00Z")},
		{SessionID: "3", ModelName: "mid", Mode: "chat", Amount: 4, UsageTime: day(t, "2025-06-02T00:00:00Z")},
	})

	models := SortedModels(sum)
	if models[0].Model != "big" || models[1].Model != "mid" || models[2].Model != "small" {
		t.Errorf("SortedModels order = %s, %s, %s", models[0].Model, models[1].Model, models[2].Model)
	}
	modes := SortedModes(sum)
	if modes[0].Mode != "builder" || modes[1].Mode != "chat" {
		t.Errorf("SortedModes order = %s, %s", modes[0].Mode, modes[1].Mode)
	}
	days := SortedDays(sum)
	if days[0].Date != "2025-06-03" || days[2].Date != "2025-06-01" {
		t.Errorf("SortedDays order = %s .. %s", days[0].Date, days[2].Date)
	}
}

func TestFilterSince(t *testing.T) {
	records := []model.UsageRecord{
		{SessionID: "old", UsageTime: 100},
		{SessionID: "edge", UsageTime: 200},
		{SessionID: "new", UsageTime: 300},
	}
	got := FilterSince(records, time.Unix(200, 0))
	if len(got) != 2 || got[0].SessionID != "edge" || got[1].SessionID != "new" {
		t.Fatalf("FilterSince = %+v", got)
	}
	if all := FilterSince(records, time.Time{}); len(all) != 3 {
		t.Fatalf("FilterSince(zero) returned %d records, want 3", len(all))
	}
}
