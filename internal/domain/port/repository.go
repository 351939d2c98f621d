package port

import (
	"context"

	"coil-vision/internal/domain/entity"
)

// LineStateRepository интерфейс хранилища состояний линий
type LineStateRepository interface {
	// Get возвращает состояние линии, создаёт новое если не найдено
	Get(ctx context.Context, lineID string) (*entity.LineState, error)

	// Update атомарно меняет состояние линии через fn и возвращает копию результата.
	// Если fn вернула ошибку, состояние не меняется.
	Update(ctx context.Context, lineID string, fn func(state *entity.LineState) error) (*entity.LineState, error)

	// List возвращает снимки состояний всех известных линий
	List(ctx context.Context) ([]entity.LineState, error)
}

// RecordRepository хранилище записей об операциях и снимках
type RecordRepository interface {
	InsertOperation(ctx context.Context, op entity.OperationRecord) (int64, error)
	InsertPicture(ctx context.Context, pic entity.PictureRecord) (int64, error)
}
