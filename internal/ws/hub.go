package ws

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/mirror"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
)

// Hub держит активные соединения и раздаёт им снапшоты коллекций.
// Подписка на коллекцию = зеркало поверх репозитория: клиент получает
// текущее состояние сразу и свежий снапшот после каждого изменения.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	total    int
	maxConns int

	apartmentRepo *repository.ApartmentRepository
	postRepo      *repository.PostRepository
	profileRepo   *repository.ProfileRepository
	convRepo      *repository.ConversationRepository
	msgRepo       *repository.MessageRepository
	favRepo       *repository.FavoriteRepository

	broker   *changes.Broker
	notifier changes.Notifier

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(
	apartmentRepo *repository.ApartmentRepository,
	postRepo *repository.PostRepository,
	profileRepo *repository.ProfileRepository,
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	favRepo *repository.FavoriteRepository,
	broker *changes.Broker,
	notifier changes.Notifier,
	maxConns int,
) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:       make(map[string]map[*Client]struct{}),
		maxConns:      maxConns,
		apartmentRepo: apartmentRepo,
		postRepo:      postRepo,
		profileRepo:   profileRepo,
		convRepo:      convRepo,
		msgRepo:       msgRepo,
		favRepo:       favRepo,
		broker:        broker,
		notifier:      notifier,
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		done:          make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Собираем клиентов под локом, сетевой I/O — вне лока.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	// Close освобождает и подписки клиента.
	c.Close()
}

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventSubscribe:
		h.handleSubscribe(ctx, c, msg)
	case EventUnsubscribe:
		topic := msg.Collection
		if topic == "favorites" {
			topic = changes.TopicFavorites(c.userID)
		}
		c.dropSubscription(topic)
	case EventSendMessage:
		h.handleSendMessage(ctx, c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

// attach запускает зеркало коллекции для клиента и шлёт ему снапшоты.
// Ошибка чтения источника не рвёт подписку: клиент получает error-событие,
// следующее изменение коллекции снова попробует перечитать.
func attach[T any](h *Hub, c *Client, topic string, source mirror.Source[T]) {
	m := mirror.New(topic, source, h.broker)
	sub := m.Subscribe(context.Background(),
		func(snapshot []T) {
			h.sendToClient(c, OutgoingMessage{Type: EventSnapshot, Collection: topic, Payload: snapshot})
		},
		func(err error) {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Collection: topic, Payload: "failed to load collection"})
		},
	)
	// Дубль подписки освобождается внутри addSubscription
	c.addSubscription(topic, sub)
}

func (h *Hub) handleSubscribe(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleSubscribe", time.Now())()
	topic := msg.Collection
	switch {
	case topic == changes.TopicApartments:
		attach(h, c, topic, func(ctx context.Context) ([]model.ApartmentPost, error) {
			return h.apartmentRepo.ListAll(ctx)
		})
	case topic == changes.TopicPeople:
		attach(h, c, topic, func(ctx context.Context) ([]model.Post, error) {
			return h.postRepo.ListAll(ctx)
		})
	case topic == changes.TopicProfiles:
		attach(h, c, topic, func(ctx context.Context) ([]model.UserProfile, error) {
			return h.profileRepo.ListAll(ctx)
		})
	case topic == changes.TopicConversations:
		uid := c.userID
		attach(h, c, topic, func(ctx context.Context) ([]model.Conversation, error) {
			return h.convRepo.ListByMember(ctx, uid)
		})
	case topic == "favorites":
		uid := c.userID
		attach(h, c, changes.TopicFavorites(uid), func(ctx context.Context) ([]FavoritesSnapshot, error) {
			postIDs, err := h.favRepo.ListIDs(ctx, repository.FavoriteApartments, uid)
			if err != nil {
				return nil, err
			}
			userIDs, err := h.favRepo.ListIDs(ctx, repository.FavoritePeople, uid)
			if err != nil {
				return nil, err
			}
			return []FavoritesSnapshot{{PostIDs: postIDs, UserIDs: userIDs}}, nil
		})
	case strings.HasPrefix(topic, "messages:"):
		conversationID := strings.TrimPrefix(topic, "messages:")
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		isMember, err := h.convRepo.IsMember(checkCtx, conversationID, c.userID)
		cancel()
		if err != nil {
			logger.Errorf("ws check membership conv=%s user=%s: %v", conversationID, c.userID, err)
			h.sendToClient(c, OutgoingMessage{Type: EventError, Collection: topic, Payload: "internal error"})
			return
		}
		if !isMember {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Collection: topic, Payload: "not a member"})
			return
		}
		attach(h, c, changes.TopicMessages(conversationID), func(ctx context.Context) ([]model.Message, error) {
			return h.msgRepo.ListByConversation(ctx, conversationID)
		})
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown collection"})
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleSendMessage", time.Now())()
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "text required"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conversationID := msg.ConversationID
	if conversationID == "" {
		// Первое сообщение: диалог создаётся (или находится) по паре участников
		id, err := repository.ConversationID(c.userID, msg.OtherUID)
		if err != nil {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation_id or other_uid required"})
			return
		}
		conversationID = id
		conv := &model.Conversation{
			ID:        conversationID,
			Members:   []string{c.userID, msg.OtherUID},
			LastMsg:   "",
			Title:     msg.Title,
			UpdatedAt: time.Now().UTC(),
		}
		if err := h.convRepo.Upsert(ctx, conv); err != nil {
			logger.Errorf("ws upsert conversation %s: %v", conversationID, err)
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "failed to start conversation"})
			return
		}
	} else {
		isMember, err := h.convRepo.IsMember(ctx, conversationID, c.userID)
		if err != nil {
			logger.Errorf("ws check membership conv=%s user=%s: %v", conversationID, c.userID, err)
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "internal error"})
			return
		}
		if !isMember {
			h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "not a member"})
			return
		}
	}

	now := time.Now().UTC()
	m := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       c.userID,
		Text:           text,
		CreatedAt:      now,
	}
	if err := h.msgRepo.Create(ctx, m); err != nil {
		logger.Errorf("ws save message conv=%s user=%s: %v", conversationID, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "failed to save message"})
		return
	}
	if err := h.convRepo.TouchLastMsg(ctx, conversationID, text, now); err != nil {
		logger.Errorf("ws touch last msg conv=%s: %v", conversationID, err)
	}

	// Подписчики перечитают коллекции и получат свежие снапшоты
	h.notifier.Publish(changes.Event{Collection: changes.TopicMessages(conversationID), Op: changes.OpCreated, DocID: m.ID})
	h.notifier.Publish(changes.Event{Collection: changes.TopicConversations, Op: changes.OpUpdated, DocID: conversationID})
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: буфер отправки полон, закрываем медленного клиента.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
