package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rate limit входа: 20 попыток / 10 минут на email. Секрет сессии живёт 30 дней.
const (
	LoginRateLimitWindow = 600 // 10 минут
	LoginRateLimitMax    = 20  // попыток за окно
	SessionSecretTTL     = 30 * 24 * 3600
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// CheckRateLimit проверяет login_limit:{email}: макс. LoginRateLimitMax попыток за окно. При превышении — HTTP 429.
func (c *Client) CheckRateLimit(ctx context.Context, email string) (allowed bool, err error) {
	key := "login_limit:" + email
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, LoginRateLimitWindow*time.Second)
	}
	return n <= int64(LoginRateLimitMax), nil
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.cli.Set(ctx, "session_secret:"+sessionID, secret, SessionSecretTTL*time.Second).Err()
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	val, err := c.cli.Get(ctx, "session_secret:"+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, "session_secret:"+sessionID).Err()
}

// Publish рассылает уведомление об изменении коллекции всем узлам API.
// Канал — имя коллекции ("apartmentPosts", "conversations", ...), payload — JSON события.
func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	return c.cli.Publish(ctx, "changes:"+channel, payload).Err()
}

// Subscribe подписывается на уведомления об изменениях коллекций.
// Возвращённый PubSub закрывает вызывающая сторона.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	prefixed := make([]string, len(channels))
	for i, ch := range channels {
		prefixed[i] = "changes:" + ch
	}
	return c.cli.Subscribe(ctx, prefixed...)
}

// PSubscribe подписывается на все каналы изменений разом (мост между узлами).
func (c *Client) PSubscribe(ctx context.Context) *redis.PubSub {
	return c.cli.PSubscribe(ctx, "changes:*")
}

// FlushDB очищает текущую БД Redis (сброс rate limit и session_secret при тестах/перезапуске).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
