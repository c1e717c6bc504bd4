package aws

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"

	"awsdev/internal/session"
)

var errNoSession = errors.New("no AWS session for this call")

type clientEntry[C any] struct {
	client C
	region string
}

// clientCache memoizes service clients per session and region. A rebuilt
// session has a new serial, so its clients never mix with stale ones.
type clientCache[C any] struct {
	mu      sync.Mutex
	clients map[string]clientEntry[C]
	build   func(sdkaws.Config) C
}

func newClientCache[C any](build func(sdkaws.Config) C) *clientCache[C] {
	return &clientCache[C]{clients: map[string]clientEntry[C]{}, build: build}
}

func (c *clientCache[C]) get(sess *session.Session, region string) (C, string, error) {
	var zero C
	if sess == nil {
		return zero, "", errNoSession
	}
	cfg := sess.Config()
	if region = strings.TrimSpace(region); region != "" {
		cfg.Region = region
	}
	usedRegion := strings.TrimSpace(cfg.Region)
	profileKey := sess.Profile() + "|"
	key := profileKey + strconv.FormatUint(sess.Serial(), 10) + "|" + usedRegion

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.clients[key]; ok {
		return entry.client, entry.region, nil
	}
	for existing := range c.clients {
		if strings.HasPrefix(existing, profileKey) {
			serial := strings.TrimPrefix(existing, profileKey)
			if !strings.HasPrefix(serial, strconv.FormatUint(sess.Serial(), 10)+"|") {
				delete(c.clients, existing)
			}
		}
	}
	client := c.build(cfg)
	c.clients[key] = clientEntry[C]{client: client, region: usedRegion}
	return client, usedRegion, nil
}

func (c *clientCache[C]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
