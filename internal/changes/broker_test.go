package changes

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBrokerDeliversToTopicSubscribers(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe(TopicApartments)
	defer cancel()
	other, cancelOther := b.Subscribe(TopicPeople)
	defer cancelOther()

	b.Publish(Event{Collection: TopicApartments, Op: OpCreated, DocID: "a1"})

	ev := recvEvent(t, ch)
	if ev.DocID != "a1" || ev.Op != OpCreated {
		t.Errorf("got %+v", ev)
	}
	select {
	case ev := <-other:
		t.Errorf("subscriber of another topic received %+v", ev)
	default:
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	ch1, cancel1 := b.Subscribe(TopicConversations)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(TopicConversations)
	defer cancel2()

	b.Publish(Event{Collection: TopicConversations, Op: OpUpdated, DocID: "c1"})
	if ev := recvEvent(t, ch1); ev.DocID != "c1" {
		t.Errorf("first subscriber got %+v", ev)
	}
	if ev := recvEvent(t, ch2); ev.DocID != "c1" {
		t.Errorf("second subscriber got %+v", ev)
	}
}

func TestBrokerCancelIdempotentAndClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe(TopicProfiles)
	cancel()
	cancel() // повторная отписка не должна паниковать

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	// Публикация после отписки никуда не идёт и не паникует.
	b.Publish(Event{Collection: TopicProfiles, Op: OpDeleted})
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe(TopicApartments)
	defer cancel()

	// Буфер подписчика 16: лишние события молча теряются, Publish не блокируется.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Collection: TopicApartments, Op: OpCreated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if n := len(ch); n > 16 {
		t.Errorf("buffered %d events, channel capacity is 16", n)
	}
}

func TestTopicHelpers(t *testing.T) {
	if got := TopicMessages("u1_u2"); got != "messages:u1_u2" {
		t.Errorf("TopicMessages = %q", got)
	}
	if got := TopicFavorites("u1"); got != "favorites:u1" {
		t.Errorf("TopicFavorites = %q", got)
	}
}
