package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"coil-vision/internal/domain/port"
)

// Telegram принимает не больше 10 фото в одной медиагруппе
const mediaGroupLimit = 10

// Publisher отправляет пачки сохранённых кадров в чат операторов
type Publisher struct {
	api    Sender
	chatID int64
}

// NewPublisher создаёт отправителя пачек в чат chatID
func NewPublisher(api Sender, chatID int64) *Publisher {
	return &Publisher{api: api, chatID: chatID}
}

// PublishBatch отправляет заголовок пачки и все кадры медиагруппами
func (p *Publisher) PublishBatch(ctx context.Context, name string, paths []string) error {
	header := tgbotapi.NewMessage(p.chatID, fmt.Sprintf("📦 %s\nКадров с дефектами: %d", name, len(paths)))
	if _, err := p.api.Send(header); err != nil {
		return errors.Wrap(err, "send batch header")
	}

	for start := 0; start < len(paths); start += mediaGroupLimit {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+mediaGroupLimit, len(paths))

		media := make([]interface{}, 0, end-start)
		for i, path := range paths[start:end] {
			photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path))
			if i == 0 {
				photo.Caption = fmt.Sprintf("%s (%d-%d)", name, start+1, end)
			}
			media = append(media, photo)
		}

		if _, err := p.api.SendMediaGroup(tgbotapi.NewMediaGroup(p.chatID, media)); err != nil {
			return errors.Wrapf(err, "send images %d-%d", start+1, end)
		}
	}
	return nil
}

var _ port.BatchPublisher = (*Publisher)(nil)
