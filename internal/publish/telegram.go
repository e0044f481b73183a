package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messenger is the part of *bot.Bot the publisher needs.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// TelegramPublisher posts the announcement text, with the chart attached when available.
type TelegramPublisher struct {
	bot       messenger
	chatID    any
	withChart bool
}

// NewTelegramPublisher creates a bot client for token. chatID is a numeric ID or an
// @channel name.
func NewTelegramPublisher(token, chatID string, withChart bool) (*TelegramPublisher, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegramPublisher(b, chatID, withChart), nil
}

func newTelegramPublisher(m messenger, chatID string, withChart bool) *TelegramPublisher {
	var id any = chatID
	if n, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		id = n
	}
	return &TelegramPublisher{bot: m, chatID: id, withChart: withChart}
}

// Name implements Publisher.
func (t *TelegramPublisher) Name() string { return "telegram" }

// Publish implements Publisher.
func (t *TelegramPublisher) Publish(ctx context.Context, rel Release) error {
	if rel.Post == "" {
		return errors.New("telegram: empty post")
	}

	if t.withChart && len(rel.ChartPNG) > 0 {
		_, err := t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  t.chatID,
			Photo:   &models.InputFileUpload{Filename: "intraday.png", Data: bytes.NewReader(rel.ChartPNG)},
			Caption: rel.Post,
		})
		if err != nil {
			return fmt.Errorf("failed to send telegram photo: %w", err)
		}
		return nil
	}

	if _, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: t.chatID, Text: rel.Post}); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
