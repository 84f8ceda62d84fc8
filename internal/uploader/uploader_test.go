package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakeStore считает вызовы и падает на заданных путях.
type fakeStore struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (s *fakeStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()
	if s.failOn != "" && strings.Contains(path, s.failOn) {
		return "", errors.New("disk full")
	}
	io.Copy(io.Discard, r)
	return "/api/files/" + path, nil
}

func imgs(names ...string) []Image {
	out := make([]Image, 0, len(names))
	for _, n := range names {
		out = append(out, Image{Filename: n, Data: strings.NewReader("data-" + n)})
	}
	return out
}

func TestUploadAllPreservesOrder(t *testing.T) {
	store := &fakeStore{}
	urls, err := UploadAll(context.Background(), store, "apartments", "a1", imgs("1.jpg", "2.jpg", "3.jpg"))
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	want := []string{
		"/api/files/apartments/a1/1.jpg",
		"/api/files/apartments/a1/2.jpg",
		"/api/files/apartments/a1/3.jpg",
	}
	if fmt.Sprint(urls) != fmt.Sprint(want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func TestUploadAllEmptyInput(t *testing.T) {
	store := &fakeStore{}
	urls, err := UploadAll(context.Background(), store, "apartments", "a1", nil)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if urls == nil || len(urls) != 0 {
		t.Errorf("urls = %v, want empty non-nil slice", urls)
	}
	if len(store.calls) != 0 {
		t.Errorf("store called %d times on empty input", len(store.calls))
	}
}

func TestUploadAllSingleErrorNoPartialResult(t *testing.T) {
	store := &fakeStore{failOn: "2.jpg"}
	urls, err := UploadAll(context.Background(), store, "apartments", "a1", imgs("1.jpg", "2.jpg", "3.jpg"))
	if err == nil {
		t.Fatal("expected error")
	}
	if urls != nil {
		t.Errorf("urls = %v, want nil on failure", urls)
	}
	if !strings.Contains(err.Error(), "2.jpg") {
		t.Errorf("error %q does not name the failed file", err)
	}
}

func TestUploadAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := &blockingStore{ctx: ctx}
	_, err := UploadAll(ctx, blocked, "apartments", "a1", imgs("1.jpg"))
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

type blockingStore struct{ ctx context.Context }

func (s *blockingStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
