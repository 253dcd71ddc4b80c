package model

// QuotaStats is one capability limit from an entitlement pack together with
// the amount already consumed against it.
type QuotaStats struct {
	Name  string  `json:"name"`
	Limit float64 `json:"limit"` // negative = unlimited
	Used  float64 `json:"used"`
}

// Unlimited reports whether the capability has no cap.
func (q QuotaStats) Unlimited() bool {
	return q.Limit < 0
}

// UsedPercent returns consumption as a 0.0-1.0 fraction of the limit.
// Unlimited or zero-limit quotas report 0.
func (q QuotaStats) UsedPercent() float64 {
	if q.Limit <= 0 {
		return 0
	}
	return q.Used / q.Limit
}

// Remaining returns the unused part of the limit, never below zero.
func (q QuotaStats) Remaining() float64 {
	if q.Limit < 0 {
		return 0
	}
	if r := q.Limit - q.Used; r > 0 {
		return r
	}
	return 0
}
