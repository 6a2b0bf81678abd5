package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// telegramClient is the subset of the bot API the source needs.
type telegramClient interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// TelegramSource collects recent chat messages addressed to the bot.
type TelegramSource struct {
	bot telegramClient
}

func NewTelegramSource(token string) (*TelegramSource, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	return &TelegramSource{bot: bot}, nil
}

func (s *TelegramSource) Name() string { return "telegram" }

func (s *TelegramSource) Fetch(ctx context.Context, after, before time.Time) (string, error) {
	updates, err := s.bot.GetUpdates(tgbotapi.UpdateConfig{
		Offset:  0,
		Limit:   100,
		Timeout: 0,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch telegram updates")
	}

	var b strings.Builder
	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		message := update.Message
		if message == nil || message.Text == "" {
			continue
		}
		sent := message.Time()
		if sent.Before(after) || !sent.Before(before) {
			continue
		}

		sender := "unknown"
		if message.From != nil {
			sender = message.From.UserName
			if sender == "" {
				sender = message.From.FirstName
			}
		}
		fmt.Fprintf(&b, "From: %s\nDate: %s\n%s\n---\n",
			sender, sent.Format(time.RFC3339), message.Text)
	}
	return b.String(), nil
}
