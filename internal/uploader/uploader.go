// Package uploader — параллельная загрузка изображений объявления в blob-хранилище.
package uploader

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// BlobStore — приёмник файлов. Реализация: fileserver (локальный диск)
// или HTTP-клиент файлового сервиса.
type BlobStore interface {
	Save(ctx context.Context, path string, r io.Reader) (url string, err error)
}

// Image — одно изображение к загрузке.
type Image struct {
	Filename string
	Data     io.Reader
}

// UploadAll грузит все изображения параллельно и возвращает их URL в исходном
// порядке. Пустой список — сразу пустой результат без обращений к хранилищу.
// Любая неудача отменяет остальные загрузки и возвращает одну ошибку:
// частичного результата не бывает, документ с неполным списком картинок
// не должен быть записан.
func UploadAll(ctx context.Context, store BlobStore, collection, entityID string, images []Image) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			path := fmt.Sprintf("%s/%s/%s", collection, entityID, img.Filename)
			url, err := store.Save(gctx, path, img.Data)
			if err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
