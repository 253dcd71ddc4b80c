package trae

// tokenResponse is the raw response of the GetUserToken endpoint.
type tokenResponse struct {
	Result struct {
		Token string `json:"Token"`
	} `json:"Result"`
}

// entitlementRequest is the body of the entitlement list call.
type entitlementRequest struct {
	RequireUsage bool `json:"require_usage"`
}

// entitlementResponse is the raw response of the entitlement list endpoint.
type entitlementResponse struct {
	Packs []entitlementPack `json:"user_entitlement_pack_list"`
}

type entitlementPack struct {
	BaseInfo struct {
		ProductType int   `json:"product_type"`
		StartTime   int64 `json:"start_time"`
		EndTime     int64 `json:"end_time"`
		Quota       struct {
			PremiumFastLimit float64 `json:"premium_model_fast_request_limit"`
			PremiumSlowLimit float64 `json:"premium_model_slow_request_limit"`
			AutoCompletion   float64 `json:"auto_completion_limit"`
			AdvancedLimit    float64 `json:"advanced_model_request_limit"`
		} `json:"quota"`
	} `json:"entitlement_base_info"`
	Usage struct {
		PremiumFast    float64 `json:"premium_model_fast_amount"`
		PremiumSlow    float64 `json:"premium_model_slow_amount"`
		AutoCompletion float64 `json:"auto_completion_amount"`
		Advanced       float64 `json:"advanced_model_amount"`
	} `json:"usage"`
	Status int `json:"status"`
}

// usageRequest is the body of the usage-by-session query.
type usageRequest struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
	PageNum   int   `json:"page_num"`
	PageSize  int   `json:"page_size"`
}

// usageResponse is one page of the usage-by-session query.
type usageResponse struct {
	Total    int            `json:"total"`
	Sessions []usageSession `json:"user_usage_group_by_sessions"`
}

type usageSession struct {
	SessionID string  `json:"session_id"`
	UsageTime int64   `json:"usage_time"`
	ModelName string  `json:"model_name"`
	Mode      string  `json:"mode"`
	Amount    float64 `json:"amount_float"`
	CostMoney float64 `json:"cost_money_float"`
	ExtraInfo struct {
		InputToken      int64 `json:"input_token"`
		OutputToken     int64 `json:"output_token"`
		CacheReadToken  int64 `json:"cache_read_token"`
		CacheWriteToken int64 `json:"cache_write_token"`
	} `json:"extra_info"`
}
