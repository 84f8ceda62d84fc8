package ws

type EventType string

const (
	// Клиент -> сервер
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
	EventSendMessage EventType = "send_message"

	// Сервер -> клиент
	EventSnapshot EventType = "snapshot"
	EventError    EventType = "error"
)

// IncomingMessage — сообщение клиента.
// subscribe/unsubscribe: collection — имя коллекции ("apartmentPosts", "posts",
// "users", "conversations", "favorites", "messages:{conversationId}").
// send_message: text плюс conversation_id ИЛИ other_uid (диалог создастся сам).
type IncomingMessage struct {
	Type           EventType `json:"type"`
	Collection     string    `json:"collection,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	OtherUID       string    `json:"otherUid,omitempty"`
	Title          string    `json:"title,omitempty"`
	Text           string    `json:"text,omitempty"`
}

// OutgoingMessage — сообщение сервера. Для snapshot Payload — полный срез
// коллекции: клиент замещает своё состояние, а не применяет дельту.
type OutgoingMessage struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// FavoritesSnapshot — снапшот избранного пользователя (обе коллекции разом).
type FavoritesSnapshot struct {
	PostIDs []string `json:"favoritePostIds"`
	UserIDs []string `json:"favoriteUserIds"`
}
