// Package changes — уведомления об изменениях коллекций.
// Брокер раздаёт события подписчикам внутри процесса; мост (bridge.go)
// переносит их между узлами API через Redis pub/sub.
package changes

import (
	"sync"
)

// Op — тип изменения.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Event — изменение одного документа коллекции. Событие сигнальное:
// подписчик перечитывает коллекцию целиком, а не применяет дельту.
type Event struct {
	Collection string `json:"collection"`
	Op         Op     `json:"op"`
	DocID      string `json:"docId,omitempty"`
}

// Topic-имена коллекций. Темы сообщений и избранного параметризованы
// (TopicMessages(id), TopicFavorites(uid)).
const (
	TopicApartments    = "apartmentPosts"
	TopicPeople        = "posts"
	TopicProfiles      = "users"
	TopicConversations = "conversations"
)

func TopicMessages(conversationID string) string { return "messages:" + conversationID }
func TopicFavorites(uid string) string           { return "favorites:" + uid }

// Broker — внутрипроцессный fan-out событий по темам.
// Отправка неблокирующая: переполненный буфер подписчика означает потерю
// события, но подписчики перечитывают снапшот целиком, поэтому следующее
// событие восстановит актуальность.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe возвращает канал событий темы и функцию отписки.
// Отписка идемпотентна и закрывает канал.
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[topic] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[topic]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.subs, topic)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish рассылает событие подписчикам темы. Медленный подписчик событие теряет.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.Collection] {
		select {
		case ch <- ev:
		default:
		}
	}
}
