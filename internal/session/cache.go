package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/sync/singleflight"

	"awsdev/internal/logging"
)

// ErrSessionCreation wraps every factory failure returned by Cache.Get.
var ErrSessionCreation = errors.New("session creation failed")

// Factory builds the SDK config for a profile. It may block on network I/O.
type Factory func(ctx context.Context, profile string) (sdkaws.Config, error)

type Options struct {
	// TTL is how long a session is served before it is rebuilt. Zero means
	// every Get constructs a new session.
	TTL time.Duration
	// ConstructTimeout bounds a single factory call. Zero means no bound
	// beyond the caller's own context.
	ConstructTimeout time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
}

type Cache struct {
	factory          Factory
	ttl              time.Duration
	constructTimeout time.Duration
	now              func() time.Time
	logger           *slog.Logger

	mu      sync.Mutex
	entries map[string]*Session
	group   singleflight.Group
	serial  atomic.Uint64
}

func NewCache(factory Factory, opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		factory:          factory,
		ttl:              ttl,
		constructTimeout: opts.ConstructTimeout,
		now:              now,
		logger:           logging.OrDiscard(opts.Logger),
		entries:          map[string]*Session{},
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the live session for profile, constructing one when the slot is
// empty or expired. A caller whose ctx ends while waiting on a construction
// returns ctx.Err(); the construction itself continues and still fills the slot.
func (c *Cache) Get(ctx context.Context, profile string) (*Session, error) {
	if sess, ok := c.lookup(profile); ok {
		return sess, nil
	}
	ch := c.group.DoChan(profile, func() (any, error) {
		return c.construct(ctx, profile)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(profile string) (*Session, bool) {
	now := c.now()
	c.mu.Lock()
	sess, ok := c.entries[profile]
	c.mu.Unlock()
	if !ok || !sess.fresh(now) {
		return nil, false
	}
	return sess, true
}

func (c *Cache) construct(callerCtx context.Context, profile string) (*Session, error) {
	// Another flight may have filled the slot between lookup and DoChan.
	if sess, ok := c.lookup(profile); ok {
		return sess, nil
	}
	if c.factory == nil {
		return nil, fmt.Errorf("%w: profile %q: no session factory configured", ErrSessionCreation, profile)
	}
	ctx := context.WithoutCancel(callerCtx)
	if c.constructTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.constructTimeout)
		defer cancel()
	}
	cfg, err := c.factory(ctx, profile)
	if err != nil {
		c.logger.Warn("session construction failed", "profile", profile, "err", err)
		return nil, fmt.Errorf("%w: profile %q: %w", ErrSessionCreation, profile, err)
	}
	// The TTL runs from when the session became usable.
	created := c.now()
	sess := &Session{
		profile:   profile,
		config:    cfg,
		createdAt: created,
		expiresAt: created.Add(c.ttl),
		serial:    c.serial.Add(1),
	}
	c.mu.Lock()
	c.entries[profile] = sess
	c.mu.Unlock()
	c.logger.Debug("session constructed", "profile", profile, "region", cfg.Region, "expiresAt", sess.expiresAt)
	return sess, nil
}

// Invalidate drops the slot for profile so the next Get rebuilds it. It
// reports whether a session was cached.
func (c *Cache) Invalidate(profile string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[profile]
	delete(c.entries, profile)
	return ok
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for profile, sess := range c.entries {
		if !sess.fresh(now) {
			delete(c.entries, profile)
			removed++
		}
	}
	return removed
}

// Profiles lists profiles with a cached (possibly expired) session.
func (c *Cache) Profiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for profile := range c.entries {
		out = append(out, profile)
	}
	sort.Strings(out)
	return out
}
