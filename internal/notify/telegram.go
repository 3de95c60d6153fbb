package notify

import (
	"context"

	"salonvox/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramStaffNotifier pushes booking alerts into the salon's staff chat.
// Optional: NewTelegramStaffNotifier returns nil without a token and a nil
// notifier swallows every call.
type TelegramStaffNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramStaffNotifier(cfg config.TelegramStaffConfig, logger *zerolog.Logger) (*TelegramStaffNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	return &TelegramStaffNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: logger,
	}, nil
}

func (n *TelegramStaffNotifier) NotifyStaff(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("failed to notify staff chat")
		return err
	}
	return nil
}
