package pipeline

import (
	"testing"

	"github.com/theirongolddev/tburn/internal/model"
)

func TestComputeWindow_Incremental(t *testing.T) {
	s := model.NewUsageStore()
	s.LastUpdateTime = 1000
	sub := model.SubscriptionWindow{StartTime: 0, EndTime: 10_000}

	w := ComputeWindow(s, sub, 5000, 3600)
	if w.Start != -2600 {
		t.Errorf("Start = %d, want -2600", w.Start)
	}
	if w.End != 5000 {
		t.Errorf("End = %d, want 5000", w.End)
	}
}

func TestComputeWindow_FirstRun(t *testing.T) {
	sub := model.SubscriptionWindow{StartTime: 1_700_000_000, EndTime: 1_702_592_000}

	w := ComputeWindow(model.NewUsageStore(), sub, 1_800_000_000, 3600)
	if w.Start != sub.StartTime {
		t.Errorf("Start = %d, want subscription start %d", w.Start, sub.StartTime)
	}
	if w.End != sub.EndTime {
		t.Errorf("End = %d, want subscription end %d", w.End, sub.EndTime)
	}
}

func TestMergeRecords(t *testing.T) {
	dst := model.NewUsageStore()
	batch := []model.UsageRecord{
		{SessionID: "a", UsageTime: 10},
		{SessionID: "b", UsageTime: 20},
		{SessionID: "", UsageTime: 30},
	}

	collected, updated := mergeRecords(dst, batch)
	if collected != 2 || updated != 0 {
		t.Fatalf("first merge = %d/%d, want 2/0", collected, updated)
	}

	collected, updated = mergeRecords(dst, batch)
	if collected != 0 || updated != 0 {
		t.Fatalf("repeat merge = %d/%d, want 0/0", collected, updated)
	}
	if len(dst.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(dst.Records))
	}

	collected, updated = mergeRecords(dst, []model.UsageRecord{
		{SessionID: "a", UsageTime: 11, Amount: 3},
		{SessionID: "a", UsageTime: 12, Amount: 4},
	})
	if collected != 0 || updated != 2 {
		t.Fatalf("update merge = %d/%d, want 0/2", collected, updated)
	}
	if got := dst.Records["a"]; got.UsageTime != 12 || got.Amount != 4 {
		t.Fatalf("record a = %+v, want the later value", got)
	}
}
