package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/filter"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/model"
	"github.com/homiefindr/internal/repository"
	"github.com/homiefindr/internal/uploader"
)

// PersonHandler — анкеты людей, ищущих жильё.
type PersonHandler struct {
	repo          *repository.PostRepository
	blob          uploader.BlobStore
	notifier      changes.Notifier
	maxUploadSize int64
}

func NewPersonHandler(repo *repository.PostRepository, blob uploader.BlobStore, notifier changes.Notifier, maxUploadSize int64) *PersonHandler {
	return &PersonHandler{repo: repo, blob: blob, notifier: notifier, maxUploadSize: maxUploadSize}
}

func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.repo.ListAll(r.Context())
	if err != nil {
		logger.Errorf("people list: %v", err)
		writeJSON(w, http.StatusOK, []model.Post{})
		return
	}
	writeJSON(w, http.StatusOK, filter.People(posts, parseCriteria(r)))
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "Анкета не найдена")
			return
		}
		logger.Errorf("person get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title обязателен")
		return
	}
	parseOptInt := func(key string) (*int, bool) {
		v := r.FormValue(key)
		if v == "" {
			return nil, true
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, false
		}
		return &n, true
	}
	priceMin, ok := parseOptInt("priceMin")
	if !ok {
		writeError(w, http.StatusBadRequest, "priceMin должен быть неотрицательным числом")
		return
	}
	priceMax, ok := parseOptInt("priceMax")
	if !ok {
		writeError(w, http.StatusBadRequest, "priceMax должен быть неотрицательным числом")
		return
	}
	if priceMin != nil && priceMax != nil && *priceMin > *priceMax {
		writeError(w, http.StatusBadRequest, "priceMin больше priceMax")
		return
	}
	leaseStart := strings.TrimSpace(r.FormValue("leaseStartDate"))
	leaseEnd := strings.TrimSpace(r.FormValue("leaseEndDate"))
	for _, d := range []string{leaseStart, leaseEnd} {
		if d != "" {
			if _, err := time.Parse(model.DateLayout, d); err != nil {
				writeError(w, http.StatusBadRequest, "даты аренды в формате MM-dd-yyyy")
				return
			}
		}
	}

	id := uuid.New().String()
	urls, err := uploadFormImages(r, h.blob, "posts", id, r.MultipartForm.File["images"])
	if err != nil {
		logger.Errorf("person create %s: upload: %v", id, err)
		writeError(w, http.StatusBadGateway, "Не удалось загрузить изображения")
		return
	}

	post := &model.Post{
		PostID:         id,
		CreatorID:      userID,
		Title:          title,
		Bio:            strings.TrimSpace(r.FormValue("bio")),
		PriceMin:       priceMin,
		PriceMax:       priceMax,
		LeaseStartDate: leaseStart,
		LeaseEndDate:   leaseEnd,
		ImageURLs:      urls,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), post); err != nil {
		logger.Errorf("person create %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить анкету")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicPeople, Op: changes.OpCreated, DocID: id})
	writeJSON(w, http.StatusCreated, post)
}

func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := h.repo.Delete(r.Context(), id, userID)
	if err != nil {
		logger.Errorf("person delete %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Анкета не найдена")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicPeople, Op: changes.OpDeleted, DocID: id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
