package interfaces

import (
	"context"
	"io"

	"dmcheckout/internal/entities"
)

// Messenger delivers text to a live DM recipient.
type Messenger interface {
	SendMessage(to, content string) error
}

// LiveHandler answers a message arriving from a live DM channel.
type LiveHandler interface {
	HandleLive(ctx context.Context, channel entities.Channel, handle, text string) (reply string, ok bool, err error)
}

// MessageStore is the append-only log of messages per session.
// History returns messages oldest first with stage markers decoded.
type MessageStore interface {
	Append(ctx context.Context, msg *entities.Message) error
	History(ctx context.Context, sessionID string) ([]entities.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
	StageCounts(ctx context.Context) (map[entities.Stage]int, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *entities.Session) error
	Get(ctx context.Context, id string) (*entities.Session, error)
	FindByHandle(ctx context.Context, channel entities.Channel, handle string) (*entities.Session, error)
	List(ctx context.Context) ([]entities.Session, error)
	Delete(ctx context.Context, id string) error
}

type ProductCatalog interface {
	List(ctx context.Context) ([]entities.Product, error)
	Get(ctx context.Context, id int) (*entities.Product, error)
	Create(ctx context.Context, p *entities.Product) error
	Update(ctx context.Context, p *entities.Product) error
	Delete(ctx context.Context, id int) error
	ImportCSV(ctx context.Context, r io.Reader) (int, error)
}

type ScriptCatalog interface {
	List(ctx context.Context) ([]entities.Script, error)
	Get(ctx context.Context, id int) (*entities.Script, error)
	Create(ctx context.Context, s *entities.Script) error
	Update(ctx context.Context, s *entities.Script) error
	Delete(ctx context.Context, id int) error
	// Active returns the most recently updated body per category.
	Active(ctx context.Context) (map[entities.Stage]string, error)
}

type CampaignCatalog interface {
	List(ctx context.Context) ([]entities.Campaign, error)
	Get(ctx context.Context, id int) (*entities.Campaign, error)
	Create(ctx context.Context, c *entities.Campaign) error
	Update(ctx context.Context, c *entities.Campaign) error
	Delete(ctx context.Context, id int) error
	// Active returns the newest active campaign.
	Active(ctx context.Context) (*entities.Campaign, error)
}

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]entities.Setting, error)
}

type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}
