package infrastructure

import (
	"context"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"dmcheckout/internal/entities"
)

const startGreeting = "Hi! 👋 Send us a message any time."

// TelegramChannel long-polls a bot for private messages and answers them
// through the dispatcher.
type TelegramChannel struct {
	client     *TelegramClient
	dispatcher *LiveDispatcher

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

func NewTelegramChannel(client *TelegramClient, dispatcher *LiveDispatcher) *TelegramChannel {
	return &TelegramChannel{client: client, dispatcher: dispatcher}
}

// Start begins polling in the background. It is a no-op when the bot is
// disabled or already running.
func (tc *TelegramChannel) Start() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if !tc.client.Enabled() || tc.running {
		return
	}
	tc.stop = make(chan struct{})
	tc.running = true

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := tc.client.Bot.GetUpdatesChan(u)
	go tc.poll(updates, tc.stop)
}

func (tc *TelegramChannel) poll(updates tgbotapi.UpdatesChannel, stop <-chan struct{}) {
	log.Info().Str("bot", tc.client.Bot.Self.UserName).Msg("telegram polling started")
	for {
		select {
		case <-stop:
			log.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			tc.handleUpdate(update)
		}
	}
}

func (tc *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	chatID, text, ok := incomingText(update)
	if !ok {
		return
	}
	to := strconv.FormatInt(chatID, 10)
	if update.Message.IsCommand() {
		if update.Message.Command() == "start" {
			tc.send(to, startGreeting)
		}
		return
	}
	tc.dispatcher.Respond(context.Background(), tc.client, entities.ChannelTelegram, to, text)
}

func (tc *TelegramChannel) send(to, text string) {
	if err := tc.client.SendMessage(to, text); err != nil {
		log.Error().Err(err).Str("chat_id", to).Msg("telegram reply failed")
	}
}

// incomingText extracts a private text message from an update.
func incomingText(update tgbotapi.Update) (int64, string, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || msg.Text == "" {
		return 0, "", false
	}
	return msg.Chat.ID, msg.Text, true
}

// Stop ends polling. It is safe to call more than once.
func (tc *TelegramChannel) Stop() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if !tc.running {
		return
	}
	close(tc.stop)
	tc.client.Bot.StopReceivingUpdates()
	tc.running = false
}

func (tc *TelegramChannel) Running() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.running
}
