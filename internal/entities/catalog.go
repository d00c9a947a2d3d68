package entities

import "time"

// Channel is the platform a DM thread lives on.
type Channel string

const (
	ChannelInstagram Channel = "instagram"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelTelegram  Channel = "telegram"
	ChannelWeb       Channel = "web"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInstagram, ChannelWhatsApp, ChannelTelegram, ChannelWeb:
		return true
	}
	return false
}

// Session is one DM thread. CampaignID is nil when the thread follows
// whichever campaign is active.
type Session struct {
	ID         string    `json:"id"`
	Channel    Channel   `json:"channel"`
	Handle     string    `json:"handle"`
	CampaignID *int      `json:"campaign_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Product struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Script is an operator-authored reply template for one stage.
type Script struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  Stage     `json:"category"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Campaign struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Keyword   string    `json:"keyword"`
	ProductID int       `json:"product_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
