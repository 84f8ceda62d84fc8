package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
)

// MessageHandler — REST-доступ к истории переписки. Доставка в реальном
// времени идёт по вебсокету, этот хендлер нужен клиентам без активного
// соединения (первая загрузка экрана, пуш-навигация).
type MessageHandler struct {
	convRepo *repository.ConversationRepository
	msgRepo  *repository.MessageRepository
	notifier changes.Notifier
}

func NewMessageHandler(convRepo *repository.ConversationRepository, msgRepo *repository.MessageRepository, notifier changes.Notifier) *MessageHandler {
	return &MessageHandler{convRepo: convRepo, msgRepo: msgRepo, notifier: notifier}
}

// List отдаёт сообщения диалога в хронологическом порядке. Не участник
// диалога получает 404, а не 403: не раскрываем сам факт существования.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	convID := chi.URLParam(r, "id")
	isMember, err := h.convRepo.IsMember(r.Context(), convID, uid)
	if err != nil {
		logger.Errorf("messages list %s: membership: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !isMember {
		writeError(w, http.StatusNotFound, "Диалог не найден")
		return
	}
	list, err := h.msgRepo.ListByConversation(r.Context(), convID)
	if err != nil {
		logger.Errorf("messages list %s: %v", convID, err)
		writeJSON(w, http.StatusOK, []model.Message{})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	convID := chi.URLParam(r, "id")
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Сообщение не может быть пустым")
		return
	}
	isMember, err := h.convRepo.IsMember(r.Context(), convID, uid)
	if err != nil {
		logger.Errorf("message send %s: membership: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !isMember {
		writeError(w, http.StatusNotFound, "Диалог не найден")
		return
	}
	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: convID,
		SenderID:       uid,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.msgRepo.Create(r.Context(), msg); err != nil {
		logger.Errorf("message send %s: %v", convID, err)
		writeError(w, http.StatusInternalServerError, "Не удалось отправить сообщение")
		return
	}
	if err := h.convRepo.TouchLastMsg(r.Context(), convID, text, msg.CreatedAt); err != nil {
		logger.Errorf("message send %s: touch: %v", convID, err)
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicMessages(convID), Op: changes.OpCreated, DocID: msg.ID})
	h.notifier.Publish(changes.Event{Collection: changes.TopicConversations, Op: changes.OpUpdated, DocID: convID})
	writeJSON(w, http.StatusCreated, msg)
}
