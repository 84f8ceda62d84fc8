package memory

import (
	"context"
	"testing"

	"github.com/homiefindr/internal/storage"
)

var _ storage.SessionStore = (*Client)(nil)

func TestSessionSecretLifecycle(t *testing.T) {
	c := New()
	ctx := context.Background()

	if got, _ := c.GetSessionSecret(ctx, "s1"); got != "" {
		t.Errorf("secret before set = %q", got)
	}
	if err := c.SetSessionSecret(ctx, "s1", "secret-value"); err != nil {
		t.Fatalf("SetSessionSecret: %v", err)
	}
	if got, _ := c.GetSessionSecret(ctx, "s1"); got != "secret-value" {
		t.Errorf("secret = %q", got)
	}
	if err := c.DeleteSessionSecret(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSessionSecret: %v", err)
	}
	if got, _ := c.GetSessionSecret(ctx, "s1"); got != "" {
		t.Errorf("secret after delete = %q", got)
	}
}

func TestCheckRateLimit(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < loginRateLimitMax; i++ {
		ok, err := c.CheckRateLimit(ctx, "user@example.com")
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := c.CheckRateLimit(ctx, "user@example.com"); ok {
		t.Error("attempt above the limit was allowed")
	}
	// Лимит считается на email: другой адрес не затронут.
	if ok, _ := c.CheckRateLimit(ctx, "other@example.com"); !ok {
		t.Error("different email was rate limited")
	}
}
