package model

// Summary holds the aggregate across every record in the store.
type Summary struct {
	TotalSessions int         `json:"total_sessions" yaml:"total_sessions"`
	TotalAmount   float64     `json:"total_amount" yaml:"total_amount"`
	TotalCost     float64     `json:"total_cost" yaml:"total_cost"`
	Tokens        TokenCounts `json:"tokens" yaml:"tokens"`

	PerModel map[string]ModelStats `json:"per_model" yaml:"per_model"`
	PerMode  map[string]ModeStats  `json:"per_mode" yaml:"per_mode"`
	PerDay   map[string]DayStats   `json:"per_day" yaml:"per_day"`
}

// ModelStats holds aggregated metrics for a single model.
type ModelStats struct {
	Model  string      `json:"model" yaml:"model"`
	Count  int         `json:"count" yaml:"count"`
	Amount float64     `json:"amount" yaml:"amount"`
	Cost   float64     `json:"cost" yaml:"cost"`
	Tokens TokenCounts `json:"tokens" yaml:"tokens"`
}

// ModeStats holds aggregated metrics for a single request mode.
type ModeStats struct {
	Mode   string  `json:"mode" yaml:"mode"`
	Count  int     `json:"count" yaml:"count"`
	Amount float64 `json:"amount" yaml:"amount"`
	Cost   float64 `json:"cost" yaml:"cost"`
}

// DayStats holds metrics for a single UTC calendar day.
type DayStats struct {
	Date   string   `json:"date" yaml:"date"` // 2006-01-02
	Count  int      `json:"count" yaml:"count"`
	Amount float64  `json:"amount" yaml:"amount"`
	Cost   float64  `json:"cost" yaml:"cost"`
	Models []string `json:"models" yaml:"models"` // distinct, sorted
}
