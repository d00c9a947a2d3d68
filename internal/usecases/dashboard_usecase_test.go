package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmcheckout/internal/entities"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dash := NewDashboardUsecase(f.store.Sessions(), f.store.Messages(), f.catalog, f.store.Settings())

	s := f.session(t)
	for _, text := range []string{"GUIDE", "yes", "not sure"} {
		_, err := f.conversation.SendInbound(ctx, s.ID, text)
		require.NoError(t, err)
	}

	stats, err := dash.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Products)
	assert.Equal(t, 5, stats.Scripts)
	assert.Equal(t, 1, stats.Campaigns)
	assert.Equal(t, 1, stats.Sessions)
	assert.Empty(t, stats.MissingScripts)
	require.NotNil(t, stats.ActiveCampaign)
	assert.Equal(t, "GUIDE", stats.ActiveCampaign.Keyword)

	assert.Equal(t, 1, stats.Funnel[entities.StagePitch])
	assert.Equal(t, 1, stats.Funnel[entities.StageQualify])
	assert.Equal(t, 1, stats.Funnel[entities.StageObjection])
	assert.Equal(t, 0, stats.Funnel[entities.StageCheckout])
	assert.Len(t, stats.Funnel, len(entities.AllStages()))
}

func TestDashboardStatsReportsMissingScripts(t *testing.T) {
	uc, store := newCatalog()
	dash := NewDashboardUsecase(store.Sessions(), store.Messages(), uc, store.Settings())
	ctx := context.Background()

	require.NoError(t, uc.SaveScript(ctx, &entities.Script{Category: entities.StagePitch, Body: "hi"}))

	stats, err := dash.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats.ActiveCampaign)
	assert.Equal(t, []entities.Stage{
		entities.StageQualify, entities.StageCheckout, entities.StageDelivery, entities.StageObjection,
	}, stats.MissingScripts)
}

func TestSettings(t *testing.T) {
	uc, store := newCatalog()
	dash := NewDashboardUsecase(store.Sessions(), store.Messages(), uc, store.Settings())
	ctx := context.Background()

	require.NoError(t, dash.SetSetting(ctx, "autoreply_enabled", " false "))
	v, err := dash.GetSetting(ctx, "autoreply_enabled")
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	v, err = dash.GetSetting(ctx, "unset")
	require.NoError(t, err)
	assert.Empty(t, v)

	assert.Equal(t, ErrorInvalidInput, CodeOf(dash.SetSetting(ctx, "bad key!", "x")))
	assert.Equal(t, ErrorInvalidInput, CodeOf(dash.SetSetting(ctx, "big", strings.Repeat("x", MaxSettingLength+1))))

	all, err := dash.AllSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "autoreply_enabled", all[0].Key)
}
