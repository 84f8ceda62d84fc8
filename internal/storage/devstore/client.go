package devstore

import (
	"context"

	"github.com/homiefindr/internal/repository"
	"github.com/homiefindr/internal/storage/memory"
)

// Client реализует SessionStore для режима -dev: rate limit в памяти,
// session_secret в БД — сессии переживают перезапуск Auth.
type Client struct {
	mem  *memory.Client
	repo *repository.SessionRepository
}

func New(repo *repository.SessionRepository) *Client {
	return &Client{mem: memory.New(), repo: repo}
}

func (c *Client) Close() error { return c.mem.Close() }

func (c *Client) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	return c.mem.CheckRateLimit(ctx, email)
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.repo.SetSessionSecret(ctx, sessionID, secret)
}
func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	return c.repo.GetSessionSecret(ctx, sessionID)
}
func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.repo.ClearSessionSecret(ctx, sessionID)
}
