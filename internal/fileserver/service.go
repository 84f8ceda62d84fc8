package fileserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/homiefindr/internal/logger"
)

// Храним только фотографии (объявления и аватары) — whitelist расширений.
var AllowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".heic": true,
}

// UploadResponse — ответ после успешной загрузки.
type UploadResponse struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
}

// Service хранит изображения на диске (сжатыми) и раздаёт их по URL.
// Реализует uploader.BlobStore.
type Service struct {
	UploadDir     string
	MaxUploadSize int64
}

// New создаёт сервис с заданным каталогом и лимитом размера (в байтах).
func New(uploadDir string, maxUploadSize int64) *Service {
	return &Service{UploadDir: uploadDir, MaxUploadSize: maxUploadSize}
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("fileserver writeJSON: %v", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// Save пишет изображение по относительному пути вида
// "apartmentPosts/{id}/{filename}" и возвращает URL для отдачи.
// Содержимое проверяется по сигнатуре, хранится сжатым (.gz).
func (s *Service) Save(ctx context.Context, relPath string, r io.Reader) (string, error) {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if relPath == "." || strings.HasPrefix(relPath, "..") || strings.HasPrefix(relPath, "/") {
		return "", fmt.Errorf("fileserver: bad path %q", relPath)
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	if !AllowedImageExt[ext] {
		return "", fmt.Errorf("fileserver: extension %q not allowed", ext)
	}

	head := make([]byte, 512)
	n, _ := io.ReadAtLeast(r, head, len(head))
	head = head[:n]
	if !matchMagic(ext, head) {
		return "", fmt.Errorf("fileserver: content does not match %q", ext)
	}

	// Имя на диске генерируем сами, каталог — из пути вызывающего
	stored := filepath.Join(filepath.Dir(relPath), uuid.New().String()+ext)
	dstPath := filepath.Join(s.UploadDir, stored+".gz")
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", fmt.Errorf("fileserver: mkdir: %w", err)
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("fileserver: create: %w", err)
	}
	gz := gzip.NewWriter(dst)
	if _, err := gz.Write(head); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("fileserver: write: %w", err)
	}
	if err := copyWithContext(ctx, gz, io.LimitReader(r, s.MaxUploadSize)); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(dstPath)
		return "", err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("fileserver: gzip close: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("fileserver: close: %w", err)
	}
	return "/api/files/" + filepath.ToSlash(stored), nil
}

// Upload обрабатывает POST multipart/form-data с полем "file".
func (s *Service) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)

	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	collection := r.FormValue("collection")
	entityID := r.FormValue("entityId")
	if collection == "" {
		collection = "misc"
	}
	if entityID == "" {
		entityID = uuid.New().String()
	}

	filename := filepath.Base(strings.ReplaceAll(header.Filename, "+", " "))
	url, err := s.Save(r.Context(), collection+"/"+entityID+"/"+filename, file)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		logger.Errorf("fileserver upload: %v", err)
		s.writeError(w, http.StatusBadRequest, "upload failed")
		return
	}

	s.writeJSON(w, http.StatusOK, UploadResponse{
		URL:         url,
		FileName:    filename,
		FileSize:    header.Size,
		ContentType: "image",
	})
}

func matchMagic(ext string, head []byte) bool {
	switch ext {
	case ".jpg", ".jpeg":
		return len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF
	case ".png":
		return len(head) >= 8 && bytes.Equal(head[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	case ".gif":
		return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
	case ".webp":
		return len(head) >= 12 && bytes.Equal(head[8:12], []byte("WEBP"))
	case ".heic":
		return len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) && (bytes.Equal(head[8:12], []byte("heic")) || bytes.Equal(head[8:12], []byte("heix")) || bytes.Equal(head[8:12], []byte("mif1")))
	}
	return false
}

// Serve отдаёт изображение по относительному пути (разархивирует при отдаче).
func (s *Service) Serve(w http.ResponseWriter, r *http.Request, relPath string) {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if relPath == "." || strings.HasPrefix(relPath, "..") || strings.HasPrefix(relPath, "/") {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}
	ext := filepath.Ext(relPath)
	if ct := contentTypeByExt(ext); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	// Имя файла в UTF-8 (RFC 5987): браузеры с кириллицей в filename= ломаются
	name := filepath.Base(relPath)
	w.Header().Set("Content-Disposition", "inline; filename*=UTF-8''"+url.PathEscape(name))
	// Картинки иммутабельны: имя на диске уникально, кэшировать можно надолго
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	gzPath := filepath.Join(s.UploadDir, relPath+".gz")
	plainPath := filepath.Join(s.UploadDir, relPath)

	// Сначала сжатый .gz, иначе — обычный файл (обратная совместимость)
	if f, err := os.Open(gzPath); err == nil {
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to read file")
			return
		}
		defer gz.Close()
		w.WriteHeader(http.StatusOK)
		io.Copy(w, gz)
		return
	}
	if f, err := os.Open(plainPath); err == nil {
		defer f.Close()
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}
	s.writeError(w, http.StatusNotFound, "file not found")
}

func contentTypeByExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	}
	return ""
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("upload cancelled: %w", ctx.Err())
		default:
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read: %w", readErr)
		}
	}
}
