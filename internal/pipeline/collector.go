// Package pipeline runs incremental usage collection and aggregates the
// stored records into summaries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/store"
	"github.com/theirongolddev/tburn/internal/trae"
)

var (
	// ErrAuthConfig wraps a failure to obtain a token for the configured session.
	ErrAuthConfig = errors.New("pipeline: cannot authenticate with configured session")
	// ErrNoSubscription means the subscription window could not be determined.
	ErrNoSubscription = errors.New("pipeline: cannot determine subscription")
	// ErrPageFetch means a usage page failed; nothing from the cycle was persisted.
	ErrPageFetch = errors.New("pipeline: usage page fetch failed")
	// ErrAlreadyCollecting rejects a collection started while another is running.
	ErrAlreadyCollecting = errors.New("pipeline: collection already in progress")
)

// Defaults applied by DefaultOptions and to zero Options fields.
const (
	DefaultPageSize  = 50
	DefaultPageDelay = time.Second
	DefaultOverlap   = time.Hour
)

// SessionSource supplies the configured session identifier.
type SessionSource interface {
	SessionID() string
}

// TokenSource resolves bearer tokens and reports the host they are valid on.
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
	ClearCache()
	Host() string
}

// UsageAPI is the subset of the Trae client the collector calls.
type UsageAPI interface {
	Entitlements(ctx context.Context, host, token string) (*trae.Entitlements, error)
	UsagePage(ctx context.Context, host, token string, q trae.UsageQuery) (*trae.UsagePage, error)
}

// RunRecorder receives one entry per attempted collection.
type RunRecorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

// State is the collector's position in a cycle.
type State int32

const (
	StateIdle State = iota
	StateResolvingToken
	StateFetchingWindow
	StateLoading
	StatePaginating
	StateMerging
	StatePersisting
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingToken:
		return "resolving-token"
	case StateFetchingWindow:
		return "fetching-window"
	case StateLoading:
		return "loading"
	case StatePaginating:
		return "paginating"
	case StateMerging:
		return "merging"
	case StatePersisting:
		return "persisting"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Progress is reported after each page has been merged.
type Progress struct {
	Page       int
	TotalPages int
	Collected  int
	Updated    int
}

// Options tunes a Collector.
type Options struct {
	PageSize   int
	PageDelay  time.Duration
	Overlap    time.Duration
	StoreKey   string
	Logger     *slog.Logger
	Now        func() time.Time
	Runs       RunRecorder
	OnProgress func(Progress)
}

// DefaultOptions returns the standard pacing and window settings.
func DefaultOptions() Options {
	return Options{
		PageSize:  DefaultPageSize,
		PageDelay: DefaultPageDelay,
		Overlap:   DefaultOverlap,
		StoreKey:  store.DefaultKey,
	}
}

// Result describes a finished collection cycle.
type Result struct {
	CycleID      string             `json:"cycle_id" yaml:"cycle_id"`
	Skipped      bool               `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Collected    int                `json:"collected" yaml:"collected"`
	Updated      int                `json:"updated" yaml:"updated"`
	Total        int                `json:"total" yaml:"total"`
	Pages        int                `json:"pages" yaml:"pages"`
	Host         string             `json:"host,omitempty" yaml:"host,omitempty"`
	Window       FetchWindow        `json:"window" yaml:"window"`
	Entitlements *trae.Entitlements `json:"-" yaml:"-"`
}

// Collector pulls new and changed usage records into the store. A cycle is
// all-or-nothing: the store is written once, after every page was merged.
type Collector struct {
	sessions SessionSource
	tokens   TokenSource
	api      UsageAPI
	blobs    store.Blobs
	opts     Options
	log      *slog.Logger

	running atomic.Bool
	state   atomic.Int32
}

// NewCollector wires a collector. Zero option fields take their defaults.
func NewCollector(sessions SessionSource, tokens TokenSource, api UsageAPI, blobs store.Blobs, opts Options) *Collector {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.StoreKey == "" {
		opts.StoreKey = store.DefaultKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Collector{
		sessions: sessions,
		tokens:   tokens,
		api:      api,
		blobs:    blobs,
		opts:     opts,
		log:      opts.Logger,
	}
}

// State returns the current cycle state.
func (c *Collector) State() State {
	return State(c.state.Load())
}

func (c *Collector) setState(s State) {
	c.state.Store(int32(s))
}

// Store returns a snapshot of the persisted usage store.
func (c *Collector) Store(ctx context.Context) (*model.UsageStore, error) {
	return store.Load(ctx, c.blobs, c.opts.StoreKey, c.log)
}

// Summarize aggregates every persisted record.
func (c *Collector) Summarize(ctx context.Context) (model.Summary, error) {
	s, err := c.Store(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	return Summarize(s.List()), nil
}

// Collect runs one collection cycle. With no session configured it returns
// a skipped result and no error.
func (c *Collector) Collect(ctx context.Context) (res Result, err error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyCollecting
	}
	defer c.running.Store(false)

	res.CycleID = uuid.NewString()
	log := c.log.With("cycle_id", res.CycleID)
	started := c.opts.Now()

	defer func() {
		if err != nil {
			log.Warn("collection aborted", "state", c.State().String(), "error", err)
			c.setState(StateAborted)
		} else {
			c.setState(StateIdle)
		}
		if !res.Skipped {
			c.recordRun(ctx, log, res, started, err)
		}
	}()

	sessionID := c.sessions.SessionID()
	if sessionID == "" {
		log.Debug("no session configured, skipping collection")
		res.Skipped = true
		return res, nil
	}

	c.setState(StateResolvingToken)
	token, err := c.tokens.Token(ctx, sessionID)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrAuthConfig, err)
	}

	c.setState(StateFetchingWindow)
	ent, token, err := c.fetchEntitlements(ctx, log, sessionID, token)
	if err != nil {
		return res, err
	}
	sub := ent.Window()
	if sub == nil {
		return res, ErrNoSubscription
	}
	res.Entitlements = ent
	res.Host = c.tokens.Host()

	c.setState(StateLoading)
	loaded, err := store.Load(ctx, c.blobs, c.opts.StoreKey, log)
	if err != nil {
		return res, fmt.Errorf("loading store: %w", err)
	}

	now := c.opts.Now().Unix()
	res.Window = ComputeWindow(loaded, *sub, now, int64(c.opts.Overlap/time.Second))
	log.Info("collecting usage", "host", res.Host, "start", res.Window.Start, "end", res.Window.End)

	working := loaded.Clone()
	pages, collected, updated, err := c.paginate(ctx, log, token, res.Window, working)
	res.Pages = pages
	if err != nil {
		return res, err
	}

	working.LastUpdateTime = now
	working.CoveredStart = sub.StartTime
	working.CoveredEnd = sub.EndTime

	c.setState(StatePersisting)
	if err := store.Save(ctx, c.blobs, c.opts.StoreKey, working); err != nil {
		return res, fmt.Errorf("saving store: %w", err)
	}

	res.Collected = collected
	res.Updated = updated
	res.Total = len(working.Records)
	log.Info("collection finished",
		"collected", collected,
		"updated", updated,
		"total", res.Total,
		"pages", pages,
		"duration", c.opts.Now().Sub(started).Round(time.Millisecond),
	)
	return res, nil
}

// fetchEntitlements fetches the entitlement list, refreshing the token once
// if the server reports it expired.
func (c *Collector) fetchEntitlements(ctx context.Context, log *slog.Logger, sessionID, token string) (*trae.Entitlements, string, error) {
	ent, err := c.api.Entitlements(ctx, c.tokens.Host(), token)
	if errors.Is(err, trae.ErrTokenExpired) {
		log.Info("token expired, refreshing")
		c.tokens.ClearCache()
		token, err = c.tokens.Token(ctx, sessionID)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrAuthConfig, err)
		}
		ent, err = c.api.Entitlements(ctx, c.tokens.Host(), token)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNoSubscription, err)
	}
	return ent, token, nil
}

// paginate fetches every page of the window in order and merges each one
// into working before requesting the next. PageDelay is waited between the
// end of one merge and the next request.
func (c *Collector) paginate(ctx context.Context, log *slog.Logger, token string, w FetchWindow, working *model.UsageStore) (pages, collected, updated int, err error) {
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		c.setState(StatePaginating)
		if err := ctx.Err(); err != nil {
			return pages, 0, 0, fmt.Errorf("%w: page %d: %w", ErrPageFetch, page, err)
		}
		if page > 1 {
			if err := sleepCtx(ctx, c.opts.PageDelay); err != nil {
				return pages, 0, 0, fmt.Errorf("%w: page %d: %w", ErrPageFetch, page, err)
			}
		}

		p, err := c.api.UsagePage(ctx, c.tokens.Host(), token, trae.UsageQuery{
			StartTime: w.Start,
			EndTime:   w.End,
			PageNum:   page,
			PageSize:  c.opts.PageSize,
		})
		if err != nil {
			return pages, 0, 0, fmt.Errorf("%w: page %d/%d: %w", ErrPageFetch, page, totalPages, err)
		}
		pages++

		if page == 1 {
			totalPages = (p.Total + c.opts.PageSize - 1) / c.opts.PageSize
			log.Debug("usage query sized", "total", p.Total, "pages", totalPages)
		}

		c.setState(StateMerging)
		col, upd := mergeRecords(working, p.Records)
		collected += col
		updated += upd
		if c.opts.OnProgress != nil {
			c.opts.OnProgress(Progress{
				Page:       page,
				TotalPages: max(totalPages, 1),
				Collected:  collected,
				Updated:    updated,
			})
		}
	}
	return pages, collected, updated, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Collector) recordRun(ctx context.Context, log *slog.Logger, res Result, started time.Time, runErr error) {
	if c.opts.Runs == nil {
		return
	}
	run := store.Run{
		ID:         res.CycleID,
		StartedAt:  started,
		FinishedAt: c.opts.Now(),
		Host:       res.Host,
		Collected:  res.Collected,
		Updated:    res.Updated,
		Total:      res.Total,
		Pages:      res.Pages,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := c.opts.Runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("recording collection run failed", "error", err)
	}
}
