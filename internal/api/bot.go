package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"coil-vision/internal/domain/entity"
)

const (
	msgStart = `👋 Бот контроля ширины рулонов.

📋 Команды:
/status — ширина и центр рулона по линиям
/coil <линия> <рулон> — отметить смену рулона
/reset <линия> — сбросить состояние линии
/help — справка`

	msgHelp = `ℹ️ Бот показывает последние измерения линий и принимает отметки о смене рулона.

После /coil сравнение ширины с предыдущим рулоном отключается на один кадр, поэтому новый рулон другой ширины принимается сразу.

📋 Команды:
/status — состояние линий
/coil <линия> <рулон> — смена рулона
/reset <линия> — сброс состояния линии`

	msgNoLines        = "Линии ещё не присылали кадров."
	msgCoilUsage      = "Использование: /coil <линия> <рулон>"
	msgResetUsage     = "Использование: /reset <линия>"
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgNotCommand     = "Отправьте /status или /help."
	msgForbidden      = "⛔ Команда доступна только в чате операторов."
	msgError          = "⚠️ Не удалось выполнить команду."
)

// Lines то, что бот знает о линиях
type Lines interface {
	List(ctx context.Context) ([]entity.LineState, error)
	ChangeCoil(ctx context.Context, lineID, coilID string) (*entity.LineState, error)
	Reset(ctx context.Context, lineID string) error
}

// Bot представляет Telegram-бота операторов
type Bot struct {
	api    Client
	lines  Lines
	chatID int64 // чат операторов; 0 — команды принимаются из любого чата
	log    *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(api Client, lines Lines, chatID int64, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, lines: lines, chatID: chatID, log: log}
}

// Run обрабатывает сообщения до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgNotCommand)
		return
	}

	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "status":
		b.sendMessage(msg.Chat.ID, b.status(ctx))

	case "coil":
		if b.chatID != 0 && msg.Chat.ID != b.chatID {
			b.sendMessage(msg.Chat.ID, msgForbidden)
			return
		}
		b.sendMessage(msg.Chat.ID, b.changeCoil(ctx, msg.CommandArguments()))

	case "reset":
		if b.chatID != 0 && msg.Chat.ID != b.chatID {
			b.sendMessage(msg.Chat.ID, msgForbidden)
			return
		}
		b.sendMessage(msg.Chat.ID, b.reset(ctx, msg.CommandArguments()))

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) status(ctx context.Context) string {
	states, err := b.lines.List(ctx)
	if err != nil {
		b.log.Error("list lines", zap.Error(err))
		return msgError
	}
	if len(states) == 0 {
		return msgNoLines
	}

	var sb strings.Builder
	for _, s := range states {
		m := s.LastMeasurement
		width := "измерение отброшено"
		if !m.Rejected() {
			width = fmt.Sprintf("%.1f мм", m.WidthMM)
		}
		fmt.Fprintf(&sb, "🏭 %s: %s, центр %d px, окно %d px, кадров %d\n",
			s.LineID, width, s.Stabilizer.ReferenceCenter, s.Stabilizer.LargestWidth, s.Frames)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) changeCoil(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return msgCoilUsage
	}
	lineID, coilID := fields[0], fields[1]

	if _, err := b.lines.ChangeCoil(ctx, lineID, coilID); err != nil {
		b.log.Error("change coil", zap.String("line", lineID), zap.Error(err))
		return msgError
	}
	return fmt.Sprintf("✅ %s: рулон %s", lineID, coilID)
}

func (b *Bot) reset(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return msgResetUsage
	}
	if err := b.lines.Reset(ctx, fields[0]); err != nil {
		b.log.Error("reset line", zap.String("line", fields[0]), zap.Error(err))
		return msgError
	}
	return fmt.Sprintf("🔄 %s: состояние сброшено", fields[0])
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", zap.Int64("chat", chatID), zap.Error(err))
	}
}
