package handler

import (
	"mime/multipart"
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

type ApartmentHandler struct {
	repo          *repository.ApartmentRepository
	blob          uploader.BlobStore
	notifier      changes.Notifier
	maxUploadSize int64
}

func NewApartmentHandler(repo *repository.ApartmentRepository, blob uploader.BlobStore, notifier changes.Notifier, maxUploadSize int64) *ApartmentHandler {
	return &ApartmentHandler{repo: repo, blob: blob, notifier: notifier, maxUploadSize: maxUploadSize}
}

// parseCriteria читает критерии фильтра из query: q, min_price, max_price,
// lease_start, lease_end (даты в формате MM-dd-yyyy).
func parseCriteria(r *http.Request) filter.Criteria {
	c := filter.Criteria{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		MinPrice: queryIntPtr(r, "min_price"),
		MaxPrice: queryIntPtr(r, "max_price"),
	}
	if s := r.URL.Query().Get("lease_start"); s != "" {
		if t, err := time.Parse(model.DateLayout, s); err == nil {
			c.LeaseStart = &t
		}
	}
	if s := r.URL.Query().Get("lease_end"); s != "" {
		if t, err := time.Parse(model.DateLayout, s); err == nil {
			c.LeaseEnd = &t
		}
	}
	return c
}

// List возвращает объявления, отфильтрованные по критериям из query.
// Ошибка чтения отдаётся как пустой список: экраны со списками показывают
// «ничего не найдено», а не ошибку.
func (h *ApartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.repo.ListAll(r.Context())
	if err != nil {
		logger.Errorf("apartments list: %v", err)
		writeJSON(w, http.StatusOK, []model.ApartmentPost{})
		return
	}
	writeJSON(w, http.StatusOK, filter.Apartments(posts, parseCriteria(r)))
}

func (h *ApartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, http.StatusNotFound, "Объявление не найдено")
			return
		}
		logger.Errorf("apartment get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create принимает multipart/form-data: текстовые поля объявления плюс
// файлы images. Сначала грузятся все картинки, документ пишется одной
// операцией только после успеха всех загрузок. Любая неудача загрузки —
// одна ошибка, документ не создаётся.
func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
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
	content := strings.TrimSpace(r.FormValue("content"))
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, "title и content обязательны")
		return
	}
	var price *int
	if v := r.FormValue("price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "price должен быть неотрицательным числом")
			return
		}
		price = &n
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
	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}
	urls, err := uploadFormImages(r, h.blob, "apartmentPosts", id, files)
	if err != nil {
		logger.Errorf("apartment create %s: upload: %v", id, err)
		writeError(w, http.StatusBadGateway, "Не удалось загрузить изображения")
		return
	}

	post := &model.ApartmentPost{
		ID:             id,
		Title:          title,
		Content:        content,
		Price:          price,
		LeaseStartDate: leaseStart,
		LeaseEndDate:   leaseEnd,
		OwnerID:        userID,
		OwnerEmail:     strings.TrimSpace(r.FormValue("ownerEmail")),
		CreatedAt:      time.Now().UTC().UnixMilli(),
		ImageURLs:      urls,
	}
	if err := h.repo.Create(r.Context(), post); err != nil {
		logger.Errorf("apartment create %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить объявление")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicApartments, Op: changes.OpCreated, DocID: id})
	writeJSON(w, http.StatusCreated, post)
}

// Delete удаляет объявление. Только владелец: чужой id — 404, без различения
// «нет объявления» и «не твоё».
func (h *ApartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := h.repo.Delete(r.Context(), id, userID)
	if err != nil {
		logger.Errorf("apartment delete %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Объявление не найдено")
		return
	}
	h.notifier.Publish(changes.Event{Collection: changes.TopicApartments, Op: changes.OpDeleted, DocID: id})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadFormImages открывает файлы формы и грузит их все разом.
// Порядок URL в результате совпадает с порядком файлов в форме.
func uploadFormImages(r *http.Request, blob uploader.BlobStore, collection, entityID string, files []*multipart.FileHeader) ([]string, error) {
	images := make([]uploader.Image, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		opened = append(opened, f)
		images = append(images, uploader.Image{Filename: fh.Filename, Data: f})
	}
	return uploader.UploadAll(r.Context(), blob, collection, entityID, images)
}
