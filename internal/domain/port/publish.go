package port

import (
	"context"

	"coil-vision/internal/domain/entity"
)

// ImageStore каталог сохранённых кадров, ожидающих отправки
type ImageStore interface {
	Save(ctx context.Context, frame entity.Frame) (string, error)
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// BatchPublisher отправляет пачку сохранённых кадров на разметку
type BatchPublisher interface {
	PublishBatch(ctx context.Context, name string, paths []string) error
}
