package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coil-vision/internal/domain/entity"
)

type fakeClient struct {
	sent    []tgbotapi.Chattable
	groups  []tgbotapi.MediaGroupConfig
	sendErr error
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{updates: make(chan tgbotapi.Update, 10)}
}

func (c *fakeClient) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	if c.sendErr != nil {
		return tgbotapi.Message{}, c.sendErr
	}
	c.sent = append(c.sent, m)
	return tgbotapi.Message{}, nil
}

func (c *fakeClient) SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.groups = append(c.groups, config)
	return nil, nil
}

func (c *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.updates
}

func (c *fakeClient) StopReceivingUpdates() { c.stopped = true }

func (c *fakeClient) texts() []string {
	var out []string
	for _, m := range c.sent {
		if msg, ok := m.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

type fakeLines struct {
	states  []entity.LineState
	changed [][2]string
	reset   []string
	err     error
}

func (l *fakeLines) List(context.Context) ([]entity.LineState, error) {
	return l.states, l.err
}

func (l *fakeLines) ChangeCoil(_ context.Context, lineID, coilID string) (*entity.LineState, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.changed = append(l.changed, [2]string{lineID, coilID})
	return entity.NewLineState(lineID), nil
}

func (l *fakeLines) Reset(_ context.Context, lineID string) error {
	if l.err != nil {
		return l.err
	}
	l.reset = append(l.reset, lineID)
	return nil
}

var errBoom = errors.New("boom")

func command(chatID int64, text string) *tgbotapi.Message {
	length := len(text)
	if i := indexSpace(text); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func indexSpace(s string) int {
	for i, r := range s {
		if r == ' ' {
			return i
		}
	}
	return -1
}
