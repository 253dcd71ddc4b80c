package trae

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/theirongolddev/tburn/internal/model"
)

// Entitlements is the parsed entitlement snapshot for the current user.
type Entitlements struct {
	Packs     []EntitlementPack
	FetchedAt time.Time
}

// EntitlementPack is one subscription or quota grant.
type EntitlementPack struct {
	ProductType int
	StartTime   int64
	EndTime     int64
	Status      int
	Quotas      []model.QuotaStats
}

// Window returns the first pack's validity range, or nil when the user has
// no entitlement pack at all.
func (e *Entitlements) Window() *model.SubscriptionWindow {
	if e == nil || len(e.Packs) == 0 {
		return nil
	}
	p := e.Packs[0]
	return &model.SubscriptionWindow{StartTime: p.StartTime, EndTime: p.EndTime}
}

// Entitlements fetches the current entitlement list.
// A "token expired" response surfaces as ErrTokenExpired.
func (c *Client) Entitlements(ctx context.Context, host, token string) (*Entitlements, error) {
	body, err := c.post(ctx, host, entitlementPath, bearer(token), entitlementRequest{RequireUsage: true})
	if err != nil {
		return nil, err
	}

	var raw entitlementResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("trae: parsing entitlements: %w", err)
	}

	out := &Entitlements{
		Packs:     make([]EntitlementPack, 0, len(raw.Packs)),
		FetchedAt: time.Now(),
	}
	for _, p := range raw.Packs {
		out.Packs = append(out.Packs, parsePack(p))
	}
	return out, nil
}

func parsePack(p entitlementPack) EntitlementPack {
	q := p.BaseInfo.Quota
	u := p.Usage
	return EntitlementPack{
		ProductType: p.BaseInfo.ProductType,
		StartTime:   p.BaseInfo.StartTime,
		EndTime:     p.BaseInfo.EndTime,
		Status:      p.Status,
		Quotas: []model.QuotaStats{
			{Name: "premium fast", Limit: q.PremiumFastLimit, Used: u.PremiumFast},
			{Name: "premium slow", Limit: q.PremiumSlowLimit, Used: u.PremiumSlow},
			{Name: "advanced", Limit: q.AdvancedLimit, Used: u.Advanced},
			{Name: "autocomplete", Limit: q.AutoCompletion, Used: u.AutoCompletion},
		},
	}
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Cloud-IDE-JWT "+token)
	return h
}
