package trae

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testClient(retryMax int, timeout time.Duration) *Client {
	return NewClient(Options{
		Timeout:  timeout,
		RetryMax: retryMax,
		Logger:   quietLogger(),
	})
}

func TestExchangeToken_SendsSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenPath {
			t.Errorf("path = %q, want %q", r.URL.Path, tokenPath)
		}
		c, err := r.Cookie("X-Cloudide-Session")
		if err != nil || c.Value != "sess-1" {
			t.Errorf("session cookie = %v (%v), want sess-1", c, err)
		}
		_, _ = io.WriteString(w, `{"ResponseMetadata":{},"Result":{"Token":"tok-1"}}`)
	}))
	defer srv.Close()

	token, err := testClient(0, time.Second).ExchangeToken(t.Context(), srv.URL, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("token = %q, want tok-1", token)
	}
}

func TestClient_AuthErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		_, _ = io.WriteString(w, `{"ResponseMetadata":{"Error":{"Code":"20310","Message":"invalid session"}}}`)
	}))
	defer srv.Close()

	_, err := testClient(5, time.Second).ExchangeToken(t.Context(), srv.URL, "sess-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestClient_ServerErrorExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(3, time.Second).ExchangeToken(t.Context(), srv.URL, "sess-1")
	if !errors.Is(err, ErrNetworkUnstable) {
		t.Fatalf("err = %v, want ErrNetworkUnstable", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want it to wrap ErrUnavailable", err)
	}
	if got := attempts.Load(); got != 4 {
		t.Fatalf("attempts = %d, want 4", got)
	}
}

func TestClient_TimeoutExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := testClient(2, 20*time.Millisecond).ExchangeToken(t.Context(), srv.URL, "sess-1")
	if !errors.Is(err, ErrNetworkUnstable) {
		t.Fatalf("err = %v, want ErrNetworkUnstable", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestClient_RecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"Result":{"Token":"tok-2"}}`)
	}))
	defer srv.Close()

	token, err := testClient(2, time.Second).ExchangeToken(t.Context(), srv.URL, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-2" {
		t.Fatalf("token = %q, want tok-2", token)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
}

func TestEntitlements_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Cloud-IDE-JWT tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		var req entitlementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.RequireUsage {
			t.Errorf("request body = %+v (%v), want require_usage", req, err)
		}
		_, _ = io.WriteString(w, `{
			"user_entitlement_pack_list": [{
				"entitlement_base_info": {
					"product_type": 1,
					"start_time": 1700000000,
					"end_time": 1702592000,
					"quota": {"premium_model_fast_request_limit": 600, "auto_completion_limit": -1}
				},
				"usage": {"premium_model_fast_amount": 42.5},
				"status": 1
			}]
		}`)
	}))
	defer srv.Close()

	ent, err := testClient(0, time.Second).Entitlements(t.Context(), srv.URL, "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ent.Packs) != 1 {
		t.Fatalf("packs = %d, want 1", len(ent.Packs))
	}
	w := ent.Window()
	if w == nil || w.StartTime != 1700000000 || w.EndTime != 1702592000 {
		t.Fatalf("Window() = %+v", w)
	}
	fast := ent.Packs[0].Quotas[0]
	if fast.Limit != 600 || fast.Used != 42.5 {
		t.Errorf("premium fast quota = %+v", fast)
	}
	auto := ent.Packs[0].Quotas[3]
	if !auto.Unlimited() {
		t.Errorf("autocomplete quota should be unlimited: %+v", auto)
	}
}

func TestEntitlements_NoPacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"user_entitlement_pack_list": []}`)
	}))
	defer srv.Close()

	ent, err := testClient(0, time.Second).Entitlements(t.Context(), srv.URL, "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ent.Window() != nil {
		t.Fatalf("Window() = %+v, want nil", ent.Window())
	}
}

func TestEntitlements_TokenExpired(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		_, _ = io.WriteString(w, `{"code":1001,"message":"token expired"}`)
	}))
	defer srv.Close()

	_, err := testClient(3, time.Second).Entitlements(t.Context(), srv.URL, "tok-1")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestUsagePage_Parse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req usageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.StartTime != 100 || req.EndTime != 200 || req.PageNum != 2 || req.PageSize != 50 {
			t.Errorf("request = %+v", req)
		}
		_, _ = io.WriteString(w, `{
			"total": 51,
			"user_usage_group_by_sessions": [{
				"session_id": "s-51",
				"usage_time": 150,
				"model_name": "claude-4-sonnet",
				"mode": "",
				"amount_float": 1.5,
				"cost_money_float": 0.04,
				"extra_info": {"input_token": 1200, "output_token": -3, "cache_read_token": 10, "cache_write_token": 5}
			}]
		}`)
	}))
	defer srv.Close()

	page, err := testClient(0, time.Second).UsagePage(t.Context(), srv.URL, "tok-1", UsageQuery{
		StartTime: 100, EndTime: 200, PageNum: 2, PageSize: 50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 51 || len(page.Records) != 1 {
		t.Fatalf("page = %+v", page)
	}
	rec := page.Records[0]
	if rec.SessionID != "s-51" || rec.UsageTime != 150 || rec.Amount != 1.5 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Tokens.Input != 1200 || rec.Tokens.Output != 0 {
		t.Errorf("tokens = %+v, want input 1200 and output clamped to 0", rec.Tokens)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unauthorized", &APIError{Status: 200, Code: authErrorCode}, false},
		{"rate limited", &APIError{Status: http.StatusTooManyRequests}, true},
		{"bad gateway", &APIError{Status: http.StatusBadGateway}, true},
		{"bad request", &APIError{Status: http.StatusBadRequest}, false},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
