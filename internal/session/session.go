// Package session caches AWS SDK configurations per shared-config profile.
//
// A Cache hands out immutable *Session handles. Each profile slot holds at
// most one live session; an expired slot is rebuilt on the next Get and
// replaced wholesale. Construction is single-flight per profile: concurrent
// callers for the same stale profile share one factory call, while callers
// for other profiles never wait on it.
package session

import (
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
)

// Session is a read-only handle to the SDK configuration built for a profile.
type Session struct {
	profile   string
	config    sdkaws.Config
	createdAt time.Time
	expiresAt time.Time
	serial    uint64
}

// NewStatic returns a handle that no cache owns. It never expires; use it to
// drive handlers directly.
func NewStatic(profile string, cfg sdkaws.Config) *Session {
	return &Session{profile: profile, config: cfg, createdAt: time.Now()}
}

func (s *Session) Profile() string { return s.profile }

// Config returns a copy of the SDK config; callers may adjust it (for example
// the region) without affecting other holders of the handle.
func (s *Session) Config() sdkaws.Config { return s.config.Copy() }

func (s *Session) Region() string { return s.config.Region }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ExpiresAt is the zero time for static handles.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Serial identifies the construction that produced this handle within its cache.
func (s *Session) Serial() uint64 { return s.serial }

// fresh reports whether the handle can still be served at now. A clock that
// appears to run backwards keeps the entry alive rather than forcing a rebuild.
func (s *Session) fresh(now time.Time) bool {
	if now.Before(s.createdAt) {
		return true
	}
	return now.Before(s.expiresAt)
}
