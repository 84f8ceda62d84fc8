// Package mirror — зеркало удалённой коллекции: подписчик получает полный
// снапшот при подписке и свежий снапшот после каждого изменения коллекции.
// Дельты не применяются: источник всегда перечитывается целиком, поэтому
// зеркало не может разойтись с хранилищем надолго.
package mirror

import (
	"context"
	"sync"

	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/logger"
)

// Source читает текущее состояние коллекции целиком.
type Source[T any] func(ctx context.Context) ([]T, error)

// Mirror раздаёт снапшоты коллекции подписчикам. Потокобезопасен,
// один Mirror обслуживает любое число подписок.
type Mirror[T any] struct {
	topic  string
	source Source[T]
	broker *changes.Broker
}

func New[T any](topic string, source Source[T], broker *changes.Broker) *Mirror[T] {
	return &Mirror[T]{topic: topic, source: source, broker: broker}
}

// Subscription — одна активная подписка. Unsubscribe обязателен и идемпотентен.
type Subscription struct {
	cancel func()
	done   chan struct{}
}

// Unsubscribe освобождает подписку. Повторные вызовы безопасны.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Subscribe запускает подписку: сначала onUpdate с текущим снапшотом, затем
// onUpdate на каждое изменение коллекции. Ошибка чтения источника уходит в
// onError, подписка при этом остаётся живой — следующее изменение снова
// попробует перечитать. Колбэки вызываются последовательно из одной горутины.
func (m *Mirror[T]) Subscribe(ctx context.Context, onUpdate func([]T), onError func(error)) *Subscription {
	events, cancelBroker := m.broker.Subscribe(m.topic)
	subCtx, cancelCtx := context.WithCancel(ctx)

	var once sync.Once
	done := make(chan struct{})
	sub := &Subscription{
		done: done,
		cancel: func() {
			once.Do(func() {
				cancelBroker()
				cancelCtx()
			})
		},
	}

	go func() {
		defer close(done)
		m.deliver(subCtx, onUpdate, onError)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				m.deliver(subCtx, onUpdate, onError)
			}
		}
	}()
	return sub
}

func (m *Mirror[T]) deliver(ctx context.Context, onUpdate func([]T), onError func(error)) {
	if ctx.Err() != nil {
		return
	}
	snapshot, err := m.source(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Errorf("mirror %s: fetch: %v", m.topic, err)
		if onError != nil {
			onError(err)
		}
		return
	}
	onUpdate(snapshot)
}

// FetchOnce — разовое чтение без подписки. Ошибка логируется и проглатывается,
// вызывающий получает пустой список (поведение экранов со списками: ошибка
// загрузки показывается как «ничего не найдено»).
func (m *Mirror[T]) FetchOnce(ctx context.Context) []T {
	snapshot, err := m.source(ctx)
	if err != nil {
		logger.Errorf("mirror %s: fetch once: %v", m.topic, err)
		return []T{}
	}
	if snapshot == nil {
		return []T{}
	}
	return snapshot
}
