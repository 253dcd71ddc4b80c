// Package model defines domain types for tburn usage records and summaries.
package model

import "sort"

// TokenCounts holds the per-record token breakdown reported by the billing API.
type TokenCounts struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cache_read"`
	CacheWrite int64 `json:"cache_write"`
}

// Add accumulates other into t.
func (t *TokenCounts) Add(other TokenCounts) {
	t.Input += other.Input
	t.Output += other.Output
	t.CacheRead += other.CacheRead
	t.CacheWrite += other.CacheWrite
}

// Total returns the sum of all token kinds.
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite
}

// UsageRecord is one billed session as reported by the usage endpoint.
// SessionID is the merge key; a changed UsageTime marks an update.
type UsageRecord struct {
	SessionID string      `json:"session_id"`
	UsageTime int64       `json:"usage_time"` // unix seconds
	ModelName string      `json:"model_name"`
	Mode      string      `json:"mode"`
	Amount    float64     `json:"amount"`
	CostMoney float64     `json:"cost_money"`
	Tokens    TokenCounts `json:"tokens"`
}

// SubscriptionWindow is the validity range of the active entitlement pack.
type SubscriptionWindow struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

// UsageStore is the persisted record set plus collection bookkeeping.
type UsageStore struct {
	LastUpdateTime int64                  `json:"last_update_time"` // 0 = never collected
	CoveredStart   int64                  `json:"covered_start"`
	CoveredEnd     int64                  `json:"covered_end"`
	Records        map[string]UsageRecord `json:"records"`
}

// NewUsageStore returns an empty store.
func NewUsageStore() *UsageStore {
	return &UsageStore{Records: make(map[string]UsageRecord)}
}

// Clone returns a deep copy that can be mutated without touching s.
func (s *UsageStore) Clone() *UsageStore {
	out := &UsageStore{
		LastUpdateTime: s.LastUpdateTime,
		CoveredStart:   s.CoveredStart,
		CoveredEnd:     s.CoveredEnd,
		Records:        make(map[string]UsageRecord, len(s.Records)),
	}
	for id, rec := range s.Records {
		out.Records[id] = rec
	}
	return out
}

// List returns the records ordered by usage time, oldest first, with the
// session id as tie-breaker.
func (s *UsageStore) List() []UsageRecord {
	out := make([]UsageRecord, 0, len(s.Records))
	for _, rec := range s.Records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageTime != out[j].UsageTime {
			return out[i].UsageTime < out[j].UsageTime
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}
