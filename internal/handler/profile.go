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
	"github.com/homiefindr/internal/uploader"
)

type ProfileHandler struct {
	repo          *repository.ProfileRepository
	blob          uploader.BlobStore
	notifier      changes.Notifier
	maxUploadSize int64
}

func NewProfileHandler(repo *repository.ProfileRepository, blob uploader.BlobStore, notifier changes.Notifier, maxUploadSize int64) *ProfileHandler {
	return &ProfileHandler{repo: repo, blob: blob, notifier: notifier, maxUploadSize: maxUploadSize}
}

// Get возвращает профиль по uid. В отличие от списков, ошибка загрузки
// профиля отдаётся как ошибка: экран профиля показывает её целиком.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "me" {
		uid = middleware.GetUserID(r.Context())
	}
	if uid == "" {
		writeError(w, http.StatusBadRequest, "uid обязателен")
		return
	}
	profile, err := h.repo.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Профиль не найден")
			return
		}
		logger.Errorf("profile get %s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "Не удалось загрузить профиль")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	Name           string `json:"name"`
	Bio            string `json:"bio"`
	PriceMin       *int   `json:"priceMin"`
	PriceMax       *int   `json:"priceMax"`
	LeaseStartDate string `json:"leaseStartDate"`
	LeaseEndDate   string `json:"leaseEndDate"`
}

// Update меняет редактируемые поля собственного профиля.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, d := range []string{req.LeaseStartDate, req.LeaseEndDate} {
		if d != "" {
			if _, err := time.Parse(model.DateLayout, d); err != nil {
				writeError(w, http.StatusBadRequest, "даты аренды в формате MM-dd-yyyy")
				return
			}
		}
	}
	current, err := h.repo.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Профиль не найден")
			return
		}
		logger.Errorf("profile update %s: load: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	current.Name = strings.TrimSpace(req.Name)
	current.Bio = strings.TrimSpace(req.Bio)
	current.PriceMin = req.PriceMin
	current.PriceMax = req.PriceMax
	current.LeaseStartDate = req.LeaseStartDate
	current.LeaseEndDate = req.LeaseEndDate
	if err := h.repo.Update(r.Context(), current); err != nil {
		logger.Errorf("profile update %s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить профиль")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicProfiles, Op: changes.OpUpdated, DocID: uid})
	writeJSON(w, http.StatusOK, current)
}

// UploadAvatar принимает multipart с файлом "file" и сохраняет URL в профиле.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	url, err := h.blob.Save(r.Context(), "users/"+uid+"/"+header.Filename, file)
	if err != nil {
		logger.Errorf("profile avatar %s: %v", uid, err)
		writeError(w, http.StatusBadGateway, "Не удалось загрузить фото")
		return
	}
	profile, err := h.repo.Get(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusNotFound, "Профиль не найден")
		return
	}
	profile.ProfileImageURL = url
	if err := h.repo.Update(r.Context(), profile); err != nil {
		logger.Errorf("profile avatar save %s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить профиль")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicProfiles, Op: changes.OpUpdated, DocID: uid})
	writeJSON(w, http.StatusOK, map[string]string{"profileImageUrl": url})
}

// List возвращает все профили (используется экраном поиска соседей).
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.repo.ListAll(r.Context())
	if err != nil {
		logger.Errorf("profiles list: %v", err)
		writeJSON(w, http.StatusOK, []model.UserProfile{})
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
