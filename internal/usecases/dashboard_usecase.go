package usecases

import (
	"context"
	"regexp"
	"strings"

	"dmcheckout/internal/entities"
	"dmcheckout/internal/interfaces"
)

const MaxSettingLength = 50000

var settingKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

type DashboardUsecase struct {
	sessions interfaces.SessionStore
	messages interfaces.MessageStore
	catalog  *CatalogUsecase
	settings interfaces.SettingsStore
}

func NewDashboardUsecase(sessions interfaces.SessionStore, messages interfaces.MessageStore, catalog *CatalogUsecase, settings interfaces.SettingsStore) *DashboardUsecase {
	return &DashboardUsecase{
		sessions: sessions,
		messages: messages,
		catalog:  catalog,
		settings: settings,
	}
}

// Stats summarises the sandbox for the dashboard home.
type Stats struct {
	Products       int                    `json:"product_count"`
	Scripts        int                    `json:"script_count"`
	Campaigns      int                    `json:"campaign_count"`
	Sessions       int                    `json:"session_count"`
	ActiveCampaign *entities.Campaign     `json:"active_campaign,omitempty"`
	Funnel         map[entities.Stage]int `json:"funnel"`
	MissingScripts []entities.Stage       `json:"missing_scripts"`
}

func (u *DashboardUsecase) Stats(ctx context.Context) (*Stats, error) {
	products, err := u.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	scripts, err := u.catalog.ListScripts(ctx)
	if err != nil {
		return nil, err
	}
	campaigns, err := u.catalog.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := u.sessions.List(ctx)
	if err != nil {
		return nil, storeError("sessions", err)
	}
	counts, err := u.messages.StageCounts(ctx)
	if err != nil {
		return nil, storeError("stage counts", err)
	}

	stats := &Stats{
		Products:       len(products),
		Scripts:        len(scripts),
		Campaigns:      len(campaigns),
		Sessions:       len(sessions),
		Funnel:         make(map[entities.Stage]int),
		MissingScripts: []entities.Stage{},
	}

	configured := make(map[entities.Stage]bool)
	for _, s := range scripts {
		configured[s.Category] = true
	}
	for _, stage := range entities.AllStages() {
		stats.Funnel[stage] = counts[stage]
		if !configured[stage] {
			stats.MissingScripts = append(stats.MissingScripts, stage)
		}
	}
	for i := range campaigns {
		if campaigns[i].Active && (stats.ActiveCampaign == nil || campaigns[i].CreatedAt.After(stats.ActiveCampaign.CreatedAt)) {
			stats.ActiveCampaign = &campaigns[i]
		}
	}
	return stats, nil
}

func (u *DashboardUsecase) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := u.settings.Get(ctx, key)
	return value, storeError("setting", err)
}

func (u *DashboardUsecase) SetSetting(ctx context.Context, key, value string) error {
	if !settingKeyPattern.MatchString(key) {
		return invalid("invalid setting key")
	}
	if len(value) > MaxSettingLength {
		return invalid("setting value too long")
	}
	return storeError("setting", u.settings.Set(ctx, key, strings.TrimSpace(value)))
}

func (u *DashboardUsecase) AllSettings(ctx context.Context) ([]entities.Setting, error) {
	settings, err := u.settings.All(ctx)
	return settings, storeError("settings", err)
}
