package infrastructure

import (
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"dmcheckout/internal/interfaces"
)

var (
	_ interfaces.Messenger = (*TelegramClient)(nil)
	_ interfaces.Messenger = (*WhatsAppClient)(nil)
	_ interfaces.Messenger = typingMessenger{}
)

var ErrTelegramDisabled = errors.New("telegram bot not configured")

// TelegramClient sends DMs through a bot. Bot is nil when the token is missing
// or rejected, in which case every send fails with ErrTelegramDisabled.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) *TelegramClient {
	if token == "" {
		return &TelegramClient{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn().Err(err).Msg("telegram bot token rejected, telegram disabled")
		return &TelegramClient{}
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot connected")
	return &TelegramClient{Bot: bot}
}

func (t *TelegramClient) Enabled() bool {
	return t.Bot != nil
}

// SendMessage implements interfaces.Messenger. to is the chat id.
// Replies are sent as plain text since scripts are free-form.
func (t *TelegramClient) SendMessage(to, content string) error {
	if t.Bot == nil {
		return ErrTelegramDisabled
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", to, err)
	}
	_, err = t.Bot.Send(tgbotapi.NewMessage(chatID, content))
	return err
}
