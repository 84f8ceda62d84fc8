package changes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/homiefindr/internal/logger"
	redisstorage "github.com/homiefindr/internal/storage/redis"
)

// Notifier — то, через что обработчики объявляют об изменениях.
// Реализации: *Broker (один узел) и *Bridge (несколько узлов через Redis).
type Notifier interface {
	Publish(ev Event)
}

// Bridge связывает локальный брокер с Redis pub/sub: локальные события
// уходят в Redis, чужие события из Redis раздаются локальным подписчикам.
type Bridge struct {
	broker *Broker
	store  *redisstorage.Client
}

func NewBridge(broker *Broker, store *redisstorage.Client) *Bridge {
	return &Bridge{broker: broker, store: store}
}

// Publish раздаёт событие локально и рассылает остальным узлам.
func (b *Bridge) Publish(ev Event) {
	b.broker.Publish(ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("changes: marshal event: %v", err)
		return
	}
	if err := b.store.Publish(context.Background(), ev.Collection, string(payload)); err != nil {
		// Другие узлы событие не увидят, локальные подписчики уже уведомлены
		logger.Errorf("changes: redis publish %s: %v", ev.Collection, err)
	}
}

// Run читает события других узлов из Redis до отмены контекста.
// Запускается одной горутиной на узел.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.store.PSubscribe(ctx)
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Errorf("changes: unmarshal event from %s: %v", msg.Channel, err)
				continue
			}
			if ev.Collection == "" {
				ev.Collection = strings.TrimPrefix(msg.Channel, "changes:")
			}
			b.broker.Publish(ev)
		}
	}
}
