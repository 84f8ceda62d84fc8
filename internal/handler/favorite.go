package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
	"github.com/homiefindr/internal/ws"
)

// FavoriteHandler — избранное пользователя. Добавление и удаление
// идемпотентны: повторный PUT/DELETE не ошибка.
type FavoriteHandler struct {
	repo          *repository.FavoriteRepository
	apartmentRepo *repository.ApartmentRepository
	postRepo      *repository.PostRepository
	notifier      changes.Notifier
}

func NewFavoriteHandler(
	repo *repository.FavoriteRepository,
	apartmentRepo *repository.ApartmentRepository,
	postRepo *repository.PostRepository,
	notifier changes.Notifier,
) *FavoriteHandler {
	return &FavoriteHandler{repo: repo, apartmentRepo: apartmentRepo, postRepo: postRepo, notifier: notifier}
}

func favoriteKind(r *http.Request) (repository.FavoriteKind, bool) {
	switch chi.URLParam(r, "kind") {
	case "apartments":
		return repository.FavoriteApartments, true
	case "people":
		return repository.FavoritePeople, true
	}
	return "", false
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	postIDs, err := h.repo.ListIDs(r.Context(), repository.FavoriteApartments, uid)
	if err != nil {
		logger.Errorf("favorites list %s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	userIDs, err := h.repo.ListIDs(r.Context(), repository.FavoritePeople, uid)
	if err != nil {
		logger.Errorf("favorites list %s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if r.URL.Query().Get("expand") == "" {
		writeJSON(w, http.StatusOK, ws.FavoritesSnapshot{PostIDs: postIDs, UserIDs: userIDs})
		return
	}
	// expand: отдаём сами документы, а не id. Удалённое объявление из
	// избранного просто выпадает из выдачи.
	apartments := make([]model.ApartmentPost, 0, len(postIDs))
	for _, id := range postIDs {
		p, err := h.apartmentRepo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			logger.Errorf("favorites expand %s: apartment %s: %v", uid, id, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		apartments = append(apartments, *p)
	}
	posts := make([]model.Post, 0, len(userIDs))
	for _, id := range userIDs {
		p, err := h.postRepo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			logger.Errorf("favorites expand %s: post %s: %v", uid, id, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		posts = append(posts, *p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"apartmentPosts": apartments,
		"posts":          posts,
	})
}

func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := favoriteKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown favorite kind")
		return
	}
	postID := chi.URLParam(r, "id")
	if err := h.repo.Add(r.Context(), kind, uid, postID); err != nil {
		logger.Errorf("favorite add %s/%s: %v", uid, postID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicFavorites(uid), Op: changes.OpCreated, DocID: postID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := favoriteKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown favorite kind")
		return
	}
	postID := chi.URLParam(r, "id")
	if err := h.repo.Remove(r.Context(), kind, uid, postID); err != nil {
		logger.Errorf("favorite remove %s/%s: %v", uid, postID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicFavorites(uid), Op: changes.OpDeleted, DocID: postID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
