package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"dmcheckout/internal/entities"
)

// WhatsAppClient is the single linked WhatsApp device the shop answers DMs from.
type WhatsAppClient struct {
	Client *whatsmeow.Client

	qrCode string
	qrLock sync.RWMutex
}

// WhatsAppStatus is what the dashboard shows about the linked device.
type WhatsAppStatus struct {
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"logged_in"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	HasQR     bool   `json:"has_qr"`
}

// NewWhatsAppClient opens (or creates) the device store at dbPath.
func NewWhatsAppClient(dbPath, logLevel string) (*WhatsAppClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create device directory: %w", err)
		}
	}
	level := strings.ToUpper(logLevel)

	dbLog := waLog.Stdout("Database", level, true)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", level, true)
	return &WhatsAppClient{Client: whatsmeow.NewClient(deviceStore, clientLog)}, nil
}

// Connect logs in with the stored session, or starts QR pairing when there is none.
func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return err
		}
		log.Info().Str("phone", w.Client.Store.ID.User).Msg("whatsapp connected (existing session)")
		return nil
	}

	qrChan, err := w.Client.GetQRChannel(context.Background())
	if err != nil {
		return fmt.Errorf("failed to open QR channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == whatsmeow.QRChannelEventCode {
			w.setQR(evt.Code)
			log.Info().Msg("whatsapp pairing QR refreshed")
			continue
		}
		w.setQR("")
		log.Info().Str("event", evt.Event).Msg("whatsapp login event")
	}
}

func (w *WhatsAppClient) setQR(code string) {
	w.qrLock.Lock()
	w.qrCode = code
	w.qrLock.Unlock()
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

func (w *WhatsAppClient) Status() WhatsAppStatus {
	st := WhatsAppStatus{
		Connected: w.Client.IsConnected(),
		LoggedIn:  w.IsLoggedIn(),
		HasQR:     w.GetQR() != "",
	}
	if st.LoggedIn {
		st.Phone = w.Client.Store.ID.User
		st.Name = w.Client.Store.PushName
	}
	return st
}

// Logout unlinks the device and starts a fresh pairing.
func (w *WhatsAppClient) Logout() error {
	w.setQR("")
	if w.IsLoggedIn() {
		if err := w.Client.Logout(context.Background()); err != nil {
			return err
		}
	}
	w.Client.Disconnect()
	return w.Connect()
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

// SendMessage implements interfaces.Messenger. to is a bare phone number.
func (w *WhatsAppClient) SendMessage(to string, content string) error {
	jid, err := types.ParseJID(to + "@" + types.DefaultUserServer)
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}
	_, err = w.Client.SendMessage(context.Background(), jid, &waProto.Message{
		Conversation: &content,
	})
	return err
}

// SendPresence shows the typing indicator to the recipient.
func (w *WhatsAppClient) SendPresence(to string) {
	jid, err := types.ParseJID(to + "@" + types.DefaultUserServer)
	if err != nil {
		return
	}
	_ = w.Client.SendPresence(context.Background(), types.PresenceAvailable)
	_ = w.Client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// ParseMessage returns the sender's phone number and the message text.
func ParseMessage(evt *events.Message) (string, string) {
	content := evt.Message.GetConversation()
	if content == "" {
		content = evt.Message.GetExtendedTextMessage().GetText()
	}
	return evt.Info.Sender.User, content
}

// Listen routes private text messages through the dispatcher and sends back
// any reply. Messages are handled inline so one sender's messages are
// processed in arrival order.
func (w *WhatsAppClient) Listen(d *LiveDispatcher) {
	w.Client.AddEventHandler(func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok || msg.Info.IsGroup || msg.Info.IsFromMe {
			return
		}
		sender, content := ParseMessage(msg)
		if content == "" {
			return
		}

		d.Respond(context.Background(), typingMessenger{w}, entities.ChannelWhatsApp, sender, content)
	})
}

// typingMessenger shows the typing indicator before each reply.
type typingMessenger struct {
	w *WhatsAppClient
}

func (t typingMessenger) SendMessage(to, content string) error {
	t.w.SendPresence(to)
	return t.w.SendMessage(to, content)
}
