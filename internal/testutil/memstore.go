// Package testutil provides in-memory implementations of the storage ports
// for tests. They mirror the postgres repositories, including stage markers
// being encoded into stored message text.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dmcheckout/internal/autoreply"
	"dmcheckout/internal/entities"
	"dmcheckout/internal/repository"
)

// Store implements every storage port over maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	clock func() time.Time

	sessions  map[string]entities.Session
	messages  map[string][]storedMessage
	products  map[int]entities.Product
	scripts   map[int]entities.Script
	campaigns map[int]entities.Campaign
	settings  map[string]entities.Setting
	users     map[string]entities.User

	nextID int
	nextMsg int64

	// Err, when set, is returned by every call.
	Err error
}

type storedMessage struct {
	id        int64
	role      entities.Role
	body      string
	createdAt time.Time
}

func NewStore() *Store {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	return &Store{
		clock: func() time.Time {
			tick++
			return start.Add(time.Duration(tick) * time.Second)
		},
		sessions:  make(map[string]entities.Session),
		messages:  make(map[string][]storedMessage),
		products:  make(map[int]entities.Product),
		scripts:   make(map[int]entities.Script),
		campaigns: make(map[int]entities.Campaign),
		settings:  make(map[string]entities.Setting),
		users:     make(map[string]entities.User),
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

// Sessions returns the session port.
func (s *Store) Sessions() *Sessions { return (*Sessions)(s) }

// Messages returns the message port.
func (s *Store) Messages() *Messages { return (*Messages)(s) }

// Products returns the product port.
func (s *Store) Products() *Products { return (*Products)(s) }

// Scripts returns the script port.
func (s *Store) Scripts() *Scripts { return (*Scripts)(s) }

// Campaigns returns the campaign port.
func (s *Store) Campaigns() *Campaigns { return (*Campaigns)(s) }

// Settings returns the settings port.
func (s *Store) Settings() *Settings { return (*Settings)(s) }

// Users returns the user port.
func (s *Store) Users() *Users { return (*Users)(s) }

// RawBodies returns message text exactly as stored for a session.
func (s *Store) RawBodies(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages[sessionID] {
		out = append(out, m.body)
	}
	return out
}

type Sessions Store

func (p *Sessions) Create(_ context.Context, sess *entities.Session) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.sessions {
		if existing.Channel == sess.Channel && existing.Handle == sess.Handle {
			return fmt.Errorf("session %s/%s: %w", sess.Channel, sess.Handle, repository.ErrConflict)
		}
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.CreatedAt = s.clock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (p *Sessions) Get(_ context.Context, id string) (*entities.Session, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (p *Sessions) FindByHandle(_ context.Context, channel entities.Channel, handle string) (*entities.Session, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, sess := range s.sessions {
		if sess.Channel == channel && sess.Handle == handle {
			return &sess, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (p *Sessions) List(_ context.Context) ([]entities.Session, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []entities.Session{}
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (p *Sessions) Delete(_ context.Context, id string) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

type Messages Store

func (p *Messages) Append(_ context.Context, msg *entities.Message) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	body := msg.Text
	if msg.Role == entities.RoleOutbound && msg.Stage != "" {
		body = autoreply.AttachStageMarker(msg.Text, msg.Stage)
	}
	s.nextMsg++
	msg.ID = s.nextMsg
	msg.CreatedAt = s.clock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], storedMessage{
		id: msg.ID, role: msg.Role, body: body, createdAt: msg.CreatedAt,
	})
	return nil
}

func (p *Messages) History(_ context.Context, sessionID string) ([]entities.Message, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	history := []entities.Message{}
	for _, m := range s.messages[sessionID] {
		msg := entities.Message{ID: m.id, SessionID: sessionID, Role: m.role, CreatedAt: m.createdAt}
		msg.Text, msg.Stage, _ = autoreply.ParseStageMarker(m.body)
		if msg.Role != entities.RoleOutbound {
			msg.Stage = ""
		}
		history = append(history, msg)
	}
	return history, nil
}

func (p *Messages) DeleteSession(_ context.Context, sessionID string) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.messages, sessionID)
	return nil
}

func (p *Messages) StageCounts(_ context.Context) (map[entities.Stage]int, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	counts := make(map[entities.Stage]int)
	for _, thread := range s.messages {
		for _, m := range thread {
			if m.role != entities.RoleOutbound {
				continue
			}
			if _, stage, ok := autoreply.ParseStageMarker(m.body); ok {
				counts[stage]++
			}
		}
	}
	return counts, nil
}

type Products Store

func (p *Products) List(_ context.Context) ([]entities.Product, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []entities.Product{}
	for _, prod := range s.products {
		out = append(out, prod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (p *Products) Get(_ context.Context, id int) (*entities.Product, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	prod, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &prod, nil
}

func (p *Products) Create(_ context.Context, prod *entities.Product) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.products {
		if existing.Title == prod.Title {
			return fmt.Errorf("product %q: %w", prod.Title, repository.ErrConflict)
		}
	}
	prod.ID = s.id()
	prod.UpdatedAt = s.clock()
	s.products[prod.ID] = *prod
	return nil
}

func (p *Products) Update(_ context.Context, prod *entities.Product) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.products[prod.ID]; !ok {
		return repository.ErrNotFound
	}
	prod.UpdatedAt = s.clock()
	s.products[prod.ID] = *prod
	return nil
}

func (p *Products) Delete(_ context.Context, id int) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// ImportCSV upserts by title like the postgres repository.
func (p *Products) ImportCSV(ctx context.Context, src io.Reader) (int, error) {
	rows, err := repository.ParseProductCSV(src)
	if err != nil {
		return 0, err
	}
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	for _, row := range rows {
		row.ID = 0
		for id, existing := range s.products {
			if existing.Title == row.Title {
				row.ID = id
			}
		}
		if row.ID == 0 {
			row.ID = s.id()
		}
		row.UpdatedAt = s.clock()
		s.products[row.ID] = row
	}
	return len(rows), nil
}

type Scripts Store

func (p *Scripts) List(_ context.Context) ([]entities.Script, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []entities.Script{}
	for _, sc := range s.scripts {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (p *Scripts) Get(_ context.Context, id int) (*entities.Script, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sc, ok := s.scripts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sc, nil
}

func (p *Scripts) Create(_ context.Context, sc *entities.Script) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	sc.ID = s.id()
	sc.UpdatedAt = s.clock()
	s.scripts[sc.ID] = *sc
	return nil
}

func (p *Scripts) Update(_ context.Context, sc *entities.Script) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.scripts[sc.ID]; !ok {
		return repository.ErrNotFound
	}
	sc.UpdatedAt = s.clock()
	s.scripts[sc.ID] = *sc
	return nil
}

func (p *Scripts) Delete(_ context.Context, id int) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.scripts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.scripts, id)
	return nil
}

func (p *Scripts) Active(_ context.Context) (map[entities.Stage]string, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	latest := make(map[entities.Stage]entities.Script)
	for _, sc := range s.scripts {
		cur, ok := latest[sc.Category]
		if !ok || sc.UpdatedAt.After(cur.UpdatedAt) {
			latest[sc.Category] = sc
		}
	}
	active := make(map[entities.Stage]string, len(latest))
	for stage, sc := range latest {
		active[stage] = sc.Body
	}
	return active, nil
}

type Campaigns Store

func (p *Campaigns) List(_ context.Context) ([]entities.Campaign, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []entities.Campaign{}
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (p *Campaigns) Get(_ context.Context, id int) (*entities.Campaign, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (p *Campaigns) Create(_ context.Context, c *entities.Campaign) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c.ID = s.id()
	c.CreatedAt = s.clock()
	s.campaigns[c.ID] = *c
	return nil
}

func (p *Campaigns) Update(_ context.Context, c *entities.Campaign) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	existing, ok := s.campaigns[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	s.campaigns[c.ID] = *c
	return nil
}

func (p *Campaigns) Delete(_ context.Context, id int) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.campaigns[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.campaigns, id)
	return nil
}

func (p *Campaigns) Active(_ context.Context) (*entities.Campaign, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var best *entities.Campaign
	for _, c := range s.campaigns {
		if !c.Active {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			c := c
			best = &c
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

type Settings Store

func (p *Settings) Get(_ context.Context, key string) (string, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.settings[key].Value, nil
}

func (p *Settings) Set(_ context.Context, key, value string) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.settings[key] = entities.Setting{Key: key, Value: value, UpdatedAt: s.clock()}
	return nil
}

func (p *Settings) All(_ context.Context) ([]entities.Setting, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []entities.Setting{}
	for _, st := range s.settings {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type Users Store

func (p *Users) Create(_ context.Context, user *entities.User) error {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("user %s: %w", user.Username, repository.ErrConflict)
	}
	user.ID = s.id()
	s.users[user.Username] = *user
	return nil
}

func (p *Users) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	s := (*Store)(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
