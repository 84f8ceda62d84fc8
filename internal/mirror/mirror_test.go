package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homiefindr/internal/changes"
)

// collector накапливает снапшоты и ошибки из колбэков подписки.
type collector struct {
	mu        sync.Mutex
	snapshots [][]string
	errs      []error
	notify    chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 64)}
}

func (c *collector) onUpdate(s []string) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, s)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (c *collector) last(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snapshots) == 0 {
		t.Fatal("no snapshots delivered")
	}
	return c.snapshots[len(c.snapshots)-1]
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	broker := changes.NewBroker()
	m := New("items", func(ctx context.Context) ([]string, error) {
		return []string{"a", "b"}, nil
	}, broker)

	col := newCollector()
	sub := m.Subscribe(context.Background(), col.onUpdate, col.onError)
	defer sub.Unsubscribe()

	col.wait(t)
	got := col.last(t)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("initial snapshot = %v", got)
	}
}

func TestSubscribeRefetchesOnEvent(t *testing.T) {
	broker := changes.NewBroker()
	var mu sync.Mutex
	state := []string{"a"}
	m := New("items", func(ctx context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(state))
		copy(out, state)
		return out, nil
	}, broker)

	col := newCollector()
	sub := m.Subscribe(context.Background(), col.onUpdate, col.onError)
	defer sub.Unsubscribe()
	col.wait(t)

	mu.Lock()
	state = append(state, "b")
	mu.Unlock()
	broker.Publish(changes.Event{Collection: "items", Op: changes.OpCreated, DocID: "b"})

	col.wait(t)
	got := col.last(t)
	if len(got) != 2 {
		t.Errorf("snapshot after event = %v, want 2 items", got)
	}
}

func TestSubscribeSurvivesSourceError(t *testing.T) {
	broker := changes.NewBroker()
	var mu sync.Mutex
	fail := false
	m := New("items", func(ctx context.Context) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("db down")
		}
		return []string{"a"}, nil
	}, broker)

	col := newCollector()
	sub := m.Subscribe(context.Background(), col.onUpdate, col.onError)
	defer sub.Unsubscribe()
	col.wait(t) // начальный снапшот

	mu.Lock()
	fail = true
	mu.Unlock()
	broker.Publish(changes.Event{Collection: "items", Op: changes.OpUpdated})
	col.wait(t) // ошибка

	col.mu.Lock()
	nerrs := len(col.errs)
	col.mu.Unlock()
	if nerrs != 1 {
		t.Fatalf("got %d errors, want 1", nerrs)
	}

	// Подписка жива: после восстановления источника снапшоты снова приходят.
	mu.Lock()
	fail = false
	mu.Unlock()
	broker.Publish(changes.Event{Collection: "items", Op: changes.OpUpdated})
	col.wait(t)

	got := col.last(t)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("snapshot after recovery = %v", got)
	}
}

func TestUnsubscribeIdempotentAndStopsDelivery(t *testing.T) {
	broker := changes.NewBroker()
	m := New("items", func(ctx context.Context) ([]string, error) {
		return []string{"a"}, nil
	}, broker)

	col := newCollector()
	sub := m.Subscribe(context.Background(), col.onUpdate, col.onError)
	col.wait(t)

	sub.Unsubscribe()
	sub.Unsubscribe() // повторный вызов безопасен

	broker.Publish(changes.Event{Collection: "items", Op: changes.OpCreated})
	select {
	case <-col.notify:
		t.Error("callback fired after Unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFetchOnceSwallowsErrors(t *testing.T) {
	broker := changes.NewBroker()
	m := New("items", func(ctx context.Context) ([]string, error) {
		return nil, errors.New("db down")
	}, broker)

	got := m.FetchOnce(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("FetchOnce on error = %v, want empty non-nil slice", got)
	}
}

func TestFetchOnceNormalizesNil(t *testing.T) {
	broker := changes.NewBroker()
	m := New("items", func(ctx context.Context) ([]string, error) {
		return nil, nil
	}, broker)
	if got := m.FetchOnce(context.Background()); got == nil {
		t.Error("FetchOnce returned nil slice")
	}
}
