package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dmcheckout/internal/entities"
	"dmcheckout/internal/interfaces"
)

const liveTimeout = 15 * time.Second

// LiveDispatcher is the shared inbound path of every live channel. It rate
// limits each sender and hands the text to the conversation handler.
type LiveDispatcher struct {
	handler interfaces.LiveHandler
	limiter *KeyedLimiter
}

// NewLiveDispatcher builds a dispatcher. A nil limiter disables rate limiting.
func NewLiveDispatcher(handler interfaces.LiveHandler, limiter *KeyedLimiter) *LiveDispatcher {
	return &LiveDispatcher{handler: handler, limiter: limiter}
}

// Dispatch returns the reply to deliver to handle, if one is due. Failures
// are logged and reported as no reply so a channel loop never stops.
func (d *LiveDispatcher) Dispatch(ctx context.Context, channel entities.Channel, handle, text string) (string, bool) {
	handle = strings.TrimSpace(handle)
	text = strings.TrimSpace(text)
	if handle == "" || text == "" {
		return "", false
	}

	logger := log.With().Str("channel", string(channel)).Str("handle", handle).Logger()
	if d.limiter != nil && !d.limiter.Allow(string(channel)+":"+handle) {
		logger.Warn().Msg("live message dropped: sender rate limited")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, liveTimeout)
	defer cancel()

	reply, ok, err := d.handler.HandleLive(ctx, channel, handle, text)
	if err != nil {
		logger.Error().Err(err).Msg("live message failed")
		return "", false
	}
	if ok {
		logger.Debug().Int("reply_len", len(reply)).Msg("live reply ready")
	}
	return reply, ok
}

// Respond dispatches text and delivers any reply to handle through m.
// It reports whether a reply was sent.
func (d *LiveDispatcher) Respond(ctx context.Context, m interfaces.Messenger, channel entities.Channel, handle, text string) bool {
	reply, ok := d.Dispatch(ctx, channel, handle, text)
	if !ok {
		return false
	}
	handle = strings.TrimSpace(handle)
	if err := m.SendMessage(handle, reply); err != nil {
		log.Error().Err(err).Str("channel", string(channel)).Str("handle", handle).Msg("live reply failed")
		return false
	}
	return true
}
