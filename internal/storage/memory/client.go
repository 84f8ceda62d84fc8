package memory

import (
	"context"
	"sync"
	"time"
)

const (
	loginRateLimitWindow = 600 * time.Second
	loginRateLimitMax    = 20
	sessionSecretTTL     = 30 * 24 * time.Hour
)

type item struct {
	val string
	exp time.Time
}

// Client — SessionStore в памяти для локальной разработки без Redis.
type Client struct {
	mu      sync.RWMutex
	limit   map[string][]time.Time
	secrets map[string]item
}

func New() *Client {
	return &Client{
		limit:   make(map[string][]time.Time),
		secrets: make(map[string]item),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-loginRateLimitWindow)
	slice := c.limit[email]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= loginRateLimitMax {
		return false, nil
	}
	kept = append(kept, now)
	c.limit[email] = kept
	return true, nil
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[sessionID] = item{val: secret, exp: time.Now().Add(sessionSecretTTL)}
	return nil
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.secrets[sessionID]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.secrets, sessionID)
	return nil
}
