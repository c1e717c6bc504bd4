package session

import (
	"strings"
	"sync"
)

// ProfileSelector holds the profile used when a request names none.
type ProfileSelector struct {
	mu      sync.RWMutex
	current string
}

func NewProfileSelector(initial string) *ProfileSelector {
	return &ProfileSelector{current: strings.TrimSpace(initial)}
}

func (p *ProfileSelector) Current() string {
	if p == nil {
		return ""
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Set switches the default profile and returns the previous one.
func (p *ProfileSelector) Set(profile string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.current
	p.current = strings.TrimSpace(profile)
	return previous
}
