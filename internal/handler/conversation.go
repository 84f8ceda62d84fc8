package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
)

type ConversationHandler struct {
	repo     *repository.ConversationRepository
	notifier changes.Notifier
}

func NewConversationHandler(repo *repository.ConversationRepository, notifier changes.Notifier) *ConversationHandler {
	return &ConversationHandler{repo: repo, notifier: notifier}
}

type startConversationRequest struct {
	OtherUID string `json:"otherUid"`
	Title    string `json:"title"`
}

// Start создаёт диалог с собеседником или возвращает существующий:
// id детерминирован парой участников, поэтому повторный вызов (с любой
// стороны) попадает в тот же диалог. Непустой title обновляет заголовок,
// пустой — сохраняет прежний.
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req startConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := repository.ConversationID(uid, req.OtherUID)
	if err != nil {
		// Пустой uid собеседника — ошибка до любого обращения к хранилищу
		writeError(w, http.StatusBadRequest, "otherUid обязателен")
		return
	}
	conv := &model.Conversation{
		ID:        id,
		Members:   []string{uid, req.OtherUID},
		LastMsg:   "",
		Title:     strings.TrimSpace(req.Title),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.repo.Upsert(r.Context(), conv); err != nil {
		logger.Errorf("conversation start %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Не удалось открыть диалог")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicConversations, Op: changes.OpUpdated, DocID: id})
	created, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		logger.Errorf("conversation start %s: reload: %v", id, err)
		writeJSON(w, http.StatusOK, conv)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// List возвращает диалоги текущего пользователя, свежие первыми.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.repo.ListByMember(r.Context(), uid)
	if err != nil {
		logger.Errorf("conversations list %s: %v", uid, err)
		writeJSON(w, http.StatusOK, []model.Conversation{})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	isMember, err := h.repo.IsMember(r.Context(), id, uid)
	if err != nil {
		logger.Errorf("conversation get %s: membership: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !isMember {
		writeError(w, http.StatusNotFound, "Диалог не найден")
		return
	}
	conv, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Диалог не найден")
			return
		}
		logger.Errorf("conversation get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
