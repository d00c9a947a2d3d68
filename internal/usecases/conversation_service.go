package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"dmcheckout/internal/autoreply"
	"dmcheckout/internal/config"
	"dmcheckout/internal/entities"
	"dmcheckout/internal/interfaces"
	"dmcheckout/internal/repository"
)

const (
	MaxMessageLength = 4000
	MaxHandleLength  = 255
)

// Locker serialises work per session.
type Locker interface {
	Lock(key string) (unlock func())
}

// ConversationStores groups the collaborators a ConversationService reads and writes.
type ConversationStores struct {
	Sessions  interfaces.SessionStore
	Messages  interfaces.MessageStore
	Products  interfaces.ProductCatalog
	Scripts   interfaces.ScriptCatalog
	Campaigns interfaces.CampaignCatalog
	Settings  interfaces.SettingsStore
}

// ConversationService runs DM threads: it records messages and asks the
// auto-reply engine whether the newest inbound message is due a reply.
type ConversationService struct {
	stores ConversationStores
	locker Locker
}

func NewConversationService(stores ConversationStores, locker Locker) *ConversationService {
	return &ConversationService{stores: stores, locker: locker}
}

// Exchange is the outcome of one inbound message.
type Exchange struct {
	Inbound entities.Message  `json:"inbound"`
	Reply   *entities.Message `json:"reply,omitempty"`
}

func (s *ConversationService) StartSession(ctx context.Context, channel entities.Channel, handle string, campaignID *int) (*entities.Session, error) {
	handle = strings.TrimSpace(handle)
	if !channel.Valid() {
		return nil, invalid("unknown channel")
	}
	if handle == "" || len(handle) > MaxHandleLength {
		return nil, invalid("handle must be 1-255 characters")
	}
	if campaignID != nil {
		if _, err := s.stores.Campaigns.Get(ctx, *campaignID); err != nil {
			return nil, storeError("campaign", err)
		}
	}

	existing, err := s.stores.Sessions.FindByHandle(ctx, channel, handle)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError("session", err)
	}
	if existing != nil {
		return nil, newError(ErrorConflict, "a thread with this handle already exists", nil)
	}

	session := &entities.Session{Channel: channel, Handle: handle, CampaignID: campaignID}
	if err := s.stores.Sessions.Create(ctx, session); err != nil {
		return nil, storeError("session", err)
	}
	log.Info().Str("session_id", session.ID).Str("channel", string(channel)).Msg("dm thread started")
	return session, nil
}

func (s *ConversationService) ListSessions(ctx context.Context) ([]entities.Session, error) {
	sessions, err := s.stores.Sessions.List(ctx)
	return sessions, storeError("sessions", err)
}

func (s *ConversationService) Session(ctx context.Context, id string) (*entities.Session, error) {
	session, err := s.stores.Sessions.Get(ctx, id)
	if err != nil {
		return nil, storeError("session", err)
	}
	return session, nil
}

func (s *ConversationService) History(ctx context.Context, id string) ([]entities.Message, error) {
	if _, err := s.Session(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.stores.Messages.History(ctx, id)
	return history, storeError("history", err)
}

// SendInbound records a customer message and, when a stage is due, the
// engine's reply.
func (s *ConversationService) SendInbound(ctx context.Context, sessionID, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxMessageLength {
		return nil, invalid("message must be 1-4000 characters")
	}
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(session.ID)
	defer unlock()

	inbound := entities.Message{SessionID: session.ID, Role: entities.RoleInbound, Text: stripMarkers(text)}
	if err := s.stores.Messages.Append(ctx, &inbound); err != nil {
		return nil, storeError("message", err)
	}
	exchange := &Exchange{Inbound: inbound}

	reply, ok, err := s.decide(ctx, session, inbound.Text)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug().Str("session_id", session.ID).Msg("no auto-reply due")
		return exchange, nil
	}

	out := entities.Message{SessionID: session.ID, Role: entities.RoleOutbound, Text: reply.Text, Stage: reply.Stage}
	if err := s.stores.Messages.Append(ctx, &out); err != nil {
		return nil, storeError("reply", err)
	}
	log.Info().Str("session_id", session.ID).Str("stage", string(reply.Stage)).Msg("auto-reply sent")
	exchange.Reply = &out
	return exchange, nil
}

// SendOperator records a manually typed outbound message. It never carries a stage.
func (s *ConversationService) SendOperator(ctx context.Context, sessionID, text string) (*entities.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxMessageLength {
		return nil, invalid("message must be 1-4000 characters")
	}
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(session.ID)
	defer unlock()

	msg := entities.Message{SessionID: session.ID, Role: entities.RoleOutbound, Text: stripMarkers(text)}
	if err := s.stores.Messages.Append(ctx, &msg); err != nil {
		return nil, storeError("message", err)
	}
	return &msg, nil
}

// ResetSession clears the thread so the flow starts over.
func (s *ConversationService) ResetSession(ctx context.Context, sessionID string) error {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	unlock := s.locker.Lock(session.ID)
	defer unlock()
	return storeError("history", s.stores.Messages.DeleteSession(ctx, session.ID))
}

func (s *ConversationService) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := s.locker.Lock(sessionID)
	defer unlock()
	if err := s.stores.Messages.DeleteSession(ctx, sessionID); err != nil {
		return storeError("history", err)
	}
	return storeError("session", s.stores.Sessions.Delete(ctx, sessionID))
}

// HandleLive feeds a message from a live channel into its thread, creating
// the thread on first contact, and returns the reply to deliver if any.
func (s *ConversationService) HandleLive(ctx context.Context, channel entities.Channel, handle, text string) (string, bool, error) {
	session, err := s.stores.Sessions.FindByHandle(ctx, channel, handle)
	if errors.Is(err, repository.ErrNotFound) {
		session, err = s.StartSession(ctx, channel, handle, nil)
		if CodeOf(err) == ErrorConflict {
			// another message from the same sender created the thread first
			session, err = s.stores.Sessions.FindByHandle(ctx, channel, handle)
		}
	}
	if err != nil {
		return "", false, err
	}

	exchange, err := s.SendInbound(ctx, session.ID, text)
	if err != nil {
		return "", false, err
	}
	if exchange.Reply == nil {
		return "", false, nil
	}
	return exchange.Reply.Text, true, nil
}

// decide assembles the flow context for a session and runs the engine.
func (s *ConversationService) decide(ctx context.Context, session *entities.Session, latest string) (autoreply.Reply, bool, error) {
	enabled, err := s.stores.Settings.Get(ctx, repository.SettingAutoReplyEnabled)
	if err != nil {
		return autoreply.Reply{}, false, storeError("settings", err)
	}
	if on, ok := config.ParseBool(enabled); ok && !on {
		return autoreply.Reply{}, false, nil
	}

	history, err := s.stores.Messages.History(ctx, session.ID)
	if err != nil {
		return autoreply.Reply{}, false, storeError("history", err)
	}

	campaign, err := s.campaignFor(ctx, session)
	if err != nil {
		return autoreply.Reply{}, false, err
	}

	fc := autoreply.FlowContext{History: history, LatestUserMessage: latest}
	if campaign != nil {
		fc.Keyword = campaign.Keyword
		if campaign.ProductID != 0 {
			product, err := s.stores.Products.Get(ctx, campaign.ProductID)
			switch {
			case err == nil:
				fc.Product = autoreply.Product{Title: product.Title, PriceCents: product.PriceCents}
			case !errors.Is(err, repository.ErrNotFound):
				return autoreply.Reply{}, false, storeError("product", err)
			}
		}
	}

	fc.Scripts, err = s.stores.Scripts.Active(ctx)
	if err != nil {
		return autoreply.Reply{}, false, storeError("scripts", err)
	}

	reply, ok := autoreply.NextAutoReply(fc)
	return reply, ok, nil
}

// campaignFor returns the session's campaign, falling back to the active one.
// No campaign at all is not an error; the thread simply never pitches.
func (s *ConversationService) campaignFor(ctx context.Context, session *entities.Session) (*entities.Campaign, error) {
	var (
		campaign *entities.Campaign
		err      error
	)
	if session.CampaignID != nil {
		campaign, err = s.stores.Campaigns.Get(ctx, *session.CampaignID)
	} else {
		campaign, err = s.stores.Campaigns.Active(ctx)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("campaign", err)
	}
	return campaign, nil
}

// stripMarkers keeps typed text from impersonating an engine reply.
func stripMarkers(text string) string {
	clean, _, _ := autoreply.ParseStageMarker(text)
	return clean
}
