package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProfileNotAllowed is returned when a call targets a profile outside the
// configured allow list.
var ErrProfileNotAllowed = errors.New("profile not allowed")

type Authorizer struct {
	allowedProfiles map[string]struct{}
}

// NewAuthorizer restricts calls to the given profiles. An empty list allows
// every profile.
func NewAuthorizer(allowedProfiles ...string) *Authorizer {
	a := &Authorizer{}
	for _, profile := range allowedProfiles {
		profile = strings.TrimSpace(profile)
		if profile == "" {
			continue
		}
		if a.allowedProfiles == nil {
			a.allowedProfiles = map[string]struct{}{}
		}
		a.allowedProfiles[profile] = struct{}{}
	}
	return a
}

func (a *Authorizer) AuthorizeProfile(profile string) error {
	if a == nil || len(a.allowedProfiles) == 0 {
		return nil
	}
	if _, ok := a.allowedProfiles[profile]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrProfileNotAllowed, profile)
}

// Restricted reports whether an allow list is in effect.
func (a *Authorizer) Restricted() bool {
	return a != nil && len(a.allowedProfiles) > 0
}
