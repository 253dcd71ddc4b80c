package cli

import (
	"errors"

	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/trae"
)

// Explain turns a collection error into a one-line message with a hint.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, trae.ErrNoSession):
		return "no session configured, run `tburn setup`"
	case errors.Is(err, trae.ErrUnauthenticated):
		return "session rejected by both hosts, run `tburn setup` with a fresh session id"
	case errors.Is(err, pipeline.ErrAlreadyCollecting):
		return "a collection is already running"
	case errors.Is(err, pipeline.ErrNoSubscription):
		return "could not determine the subscription window: " + rootCause(err)
	case errors.Is(err, trae.ErrNetworkUnstable):
		return "network unstable, retries exhausted: " + rootCause(err)
	case errors.Is(err, pipeline.ErrPageFetch):
		return "usage fetch failed part way, nothing was saved: " + rootCause(err)
	default:
		return err.Error()
	}
}

// rootCause follows the last wrapped error down to the innermost one.
func rootCause(err error) string {
	for {
		switch u := err.(type) {
		case *trae.APIError:
			return u.Error()
		case interface{ Unwrap() error }:
			if next := u.Unwrap(); next != nil {
				err = next
				continue
			}
		case interface{ Unwrap() []error }:
			if errs := u.Unwrap(); len(errs) > 0 {
				err = errs[len(errs)-1]
				continue
			}
		}
		return err.Error()
	}
}
