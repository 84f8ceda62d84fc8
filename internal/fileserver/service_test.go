package fileserver

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngData = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0xAB}, 64)...)

func TestSaveAndServeRoundtrip(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	url, err := svc.Save(context.Background(), "apartments/a1/photo.png", bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/api/files/apartments/a1/") {
		t.Fatalf("url = %q", url)
	}

	relPath := strings.TrimPrefix(url, "/api/files/")
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", url, nil)
	svc.Serve(w, r, relPath)

	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content type = %q", got)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("cache control = %q", cc)
	}
	body, _ := io.ReadAll(w.Body)
	if !bytes.Equal(body, pngData) {
		t.Error("served bytes differ from uploaded bytes")
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	tests := []struct {
		name string
		path string
		data []byte
	}{
		{"extension not allowed", "apartments/a1/script.exe", pngData},
		{"no extension", "apartments/a1/photo", pngData},
		{"content does not match extension", "apartments/a1/photo.png", []byte("plain text, not an image")},
		{"path traversal", "../outside/photo.png", pngData},
		{"absolute path", "/etc/photo.png", pngData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Save(context.Background(), tt.path, bytes.NewReader(tt.data)); err == nil {
				t.Errorf("Save(%q) succeeded, expected error", tt.path)
			}
		})
	}
}

func TestServeUnknownFile(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/files/apartments/a1/missing.png", nil)
	svc.Serve(w, r, "apartments/a1/missing.png")
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeRejectsTraversal(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/files/x", nil)
	svc.Serve(w, r, "../../etc/passwd")
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	u1, err := svc.Save(context.Background(), "users/u1/avatar.png", bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	u2, err := svc.Save(context.Background(), "users/u1/avatar.png", bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if u1 == u2 {
		t.Errorf("two uploads of the same name got the same url %q", u1)
	}
}
