package handler

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/homiefindr/internal/config"
	"github.com/homiefindr/internal/fileserver"
	"github.com/homiefindr/internal/uploader"
)

type FileHandler struct {
	cfg        *config.Config
	fileSvc    *fileserver.Service
	fileClient *http.Client
	fileBase   string
}

func NewFileHandler(cfg *config.Config) *FileHandler {
	h := &FileHandler{cfg: cfg}
	if cfg.FileServiceURL == "" {
		h.fileSvc = fileserver.New(cfg.UploadDir, cfg.MaxUploadSize)
	} else {
		h.fileClient = &http.Client{Timeout: 60 * time.Second}
		h.fileBase = strings.TrimSuffix(cfg.FileServiceURL, "/")
	}
	return h
}

// Blob возвращает хранилище картинок для хендлеров объявлений и
// профилей: локальный диск либо клиент файлового сервиса.
func (h *FileHandler) Blob() uploader.BlobStore {
	if h.fileSvc != nil {
		return h.fileSvc
	}
	return fileserver.NewRemote(h.fileBase)
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.fileSvc != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
		h.fileSvc.Upload(w, r)
		return
	}
	// Прокси на микросервис файлов (Content-Length обязателен для корректного парсинга multipart)
	proxyURL := h.fileBase + "/upload"
	proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, proxyURL, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	proxyReq.Header.Set("Content-Type", r.Header.Get("Content-Type"))
	proxyReq.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if r.ContentLength > 0 {
		proxyReq.ContentLength = r.ContentLength
	}
	resp, err := h.fileClient.Do(proxyReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, "file service unavailable")
		return
	}
	defer resp.Body.Close()
	copyFileHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// Serve отдаёт файл по вложенному пути collection/entityId/filename —
// поэтому роут заканчивается на "/*", а не на именованный параметр.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	relPath := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if h.fileSvc != nil {
		h.fileSvc.Serve(w, r, relPath)
		return
	}
	// Прокси GET на микросервис файлов
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	proxyURL := h.fileBase + "/files/" + strings.Join(parts, "/")
	proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, proxyURL, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp, err := h.fileClient.Do(proxyReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, "file service unavailable")
		return
	}
	defer resp.Body.Close()
	copyFileHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func copyFileHeaders(w http.ResponseWriter, resp *http.Response) {
	for k, v := range resp.Header {
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Content-Type") ||
			strings.EqualFold(k, "Content-Disposition") || strings.EqualFold(k, "Cache-Control") {
			w.Header()[k] = v
		}
	}
}
