package fileserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"
)

// Remote реализует хранилище картинок поверх отдельного файлового
// сервиса. API-нода сама не пишет на диск: всё уходит POST-ом в /upload.
type Remote struct {
	base   string
	client *http.Client
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Remote) Save(ctx context.Context, relPath string, src io.Reader) (string, error) {
	relPath = strings.TrimPrefix(path.Clean(relPath), "/")
	dir, filename := path.Split(relPath)
	parts := strings.SplitN(strings.Trim(dir, "/"), "/", 2)
	collection := parts[0]
	entityID := ""
	if len(parts) == 2 {
		entityID = parts[1]
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("collection", collection); err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}
	if err := mw.WriteField("entityId", entityID); err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}
	if _, err := io.Copy(fw, src); err != nil {
		return "", fmt.Errorf("fileserver remote: read: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fileserver remote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fileserver remote: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("fileserver remote: decode: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("fileserver remote: empty url in response")
	}
	return out.URL, nil
}
