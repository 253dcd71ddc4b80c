package trae

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoSession is returned when Token is called without a session identifier.
var ErrNoSession = errors.New("trae: no session id configured")

// HostStore persists the host that last accepted the session.
type HostStore interface {
	Host() string
	SetHost(host string) error
}

// Resolver turns a session identifier into a bearer token, caching the token
// for as long as the session identifier does not change. When the current
// host rejects the session it switches to the other host once and persists
// the switch.
type Resolver struct {
	client    *Client
	hosts     HostStore
	primary   string
	alternate string
	log       *slog.Logger

	mu        sync.Mutex
	host      string
	sessionID string
	token     string
}

// NewResolver creates a resolver. The starting host is the persisted host,
// falling back to primary when none is stored.
func NewResolver(client *Client, hosts HostStore, primary, alternate string, log *slog.Logger) *Resolver {
	if primary == "" {
		primary = PrimaryHost
	}
	if alternate == "" {
		alternate = AlternateHost
	}
	if log == nil {
		log = slog.Default()
	}
	host := ""
	if hosts != nil {
		host = hosts.Host()
	}
	if host == "" {
		host = primary
	}
	return &Resolver{
		client:    client,
		hosts:     hosts,
		primary:   primary,
		alternate: alternate,
		log:       log,
		host:      host,
	}
}

// Host returns the host currently in use.
func (r *Resolver) Host() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// ClearCache drops the cached token so the next Token call exchanges again.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
}

// Token returns a bearer token for sessionID. Concurrent callers are
// serialized so at most one exchange is in flight.
func (r *Resolver) Token(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessionID == sessionID && r.token != "" {
		return r.token, nil
	}
	if r.sessionID != sessionID {
		r.token = ""
		r.sessionID = sessionID
	}

	failedOver := false
	for {
		token, err := r.client.ExchangeToken(ctx, r.host, sessionID)
		if err == nil {
			r.token = token
			return token, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			return "", err
		}
		if failedOver {
			return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}

		failedOver = true
		next := r.other(r.host)
		r.log.Info("session rejected, switching host", "from", r.host, "to", next)
		r.host = next
		if r.hosts != nil {
			if err := r.hosts.SetHost(next); err != nil {
				r.log.Warn("persisting host failed", "host", next, "error", err)
			}
		}
	}
}

func (r *Resolver) other(host string) string {
	if host == r.alternate {
		return r.primary
	}
	return r.alternate
}
