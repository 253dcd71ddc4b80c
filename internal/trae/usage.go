package trae

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theirongolddev/tburn/internal/model"
)

// UsageQuery selects one page of usage records. PageNum is 1-based.
type UsageQuery struct {
	StartTime int64
	EndTime   int64
	PageNum   int
	PageSize  int
}

// UsagePage is one page of records plus the total record count of the query.
type UsagePage struct {
	Total   int
	Records []model.UsageRecord
}

// UsagePage fetches a single page of per-session usage for the given range.
func (c *Client) UsagePage(ctx context.Context, host, token string, q UsageQuery) (*UsagePage, error) {
	req := usageRequest{
		StartTime: q.StartTime,
		EndTime:   q.EndTime,
		PageNum:   q.PageNum,
		PageSize:  q.PageSize,
	}
	body, err := c.post(ctx, host, usagePath, bearer(token), req)
	if err != nil {
		return nil, err
	}

	var raw usageResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("trae: parsing usage page %d: %w", q.PageNum, err)
	}

	page := &UsagePage{
		Total:   raw.Total,
		Records: make([]model.UsageRecord, 0, len(raw.Sessions)),
	}
	for _, s := range raw.Sessions {
		page.Records = append(page.Records, toRecord(s))
	}
	return page, nil
}

func toRecord(s usageSession) model.UsageRecord {
	return model.UsageRecord{
		SessionID: s.SessionID,
		UsageTime: s.UsageTime,
		ModelName: s.ModelName,
		Mode:      s.Mode,
		Amount:    s.Amount,
		CostMoney: s.CostMoney,
		Tokens: model.TokenCounts{
			Input:      nonNegative(s.ExtraInfo.InputToken),
			Output:     nonNegative(s.ExtraInfo.OutputToken),
			CacheRead:  nonNegative(s.ExtraInfo.CacheReadToken),
			CacheWrite: nonNegative(s.ExtraInfo.CacheWriteToken),
		},
	}
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
