package repository

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmcheckout/internal/entities"
	"dmcheckout/internal/infrastructure"
)

// openTestDB needs a disposable database; tables are truncated.
func openTestDB(t *testing.T) *infrastructure.PostgresClient {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("env DATABASE_URL not set")
	}
	client, err := infrastructure.NewPostgresClient(context.Background(), dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	_, err = client.Pool.Exec(context.Background(),
		"TRUNCATE dm_messages, dm_sessions, campaigns, scripts, products, settings RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestPostgresMessageLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepository(db.Pool)
	messages := NewMessageRepository(db.Pool)

	s := &entities.Session{Channel: entities.ChannelInstagram, Handle: "@ana"}
	require.NoError(t, sessions.Create(ctx, s))
	require.NotEmpty(t, s.ID)
	dup := &entities.Session{Channel: entities.ChannelInstagram, Handle: "@ana"}
	assert.ErrorIs(t, sessions.Create(ctx, dup), ErrConflict)

	found, err := sessions.FindByHandle(ctx, entities.ChannelInstagram, "@ana")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)

	in := &entities.Message{SessionID: s.ID, Role: entities.RoleInbound, Text: "GUIDE"}
	out := &entities.Message{SessionID: s.ID, Role: entities.RoleOutbound, Text: "Here it is", Stage: entities.StagePitch}
	manual := &entities.Message{SessionID: s.ID, Role: entities.RoleOutbound, Text: "hi from me"}
	for _, m := range []*entities.Message{in, out, manual} {
		require.NoError(t, messages.Append(ctx, m))
	}

	var raw string
	require.NoError(t, db.Pool.QueryRow(ctx, "SELECT body FROM dm_messages WHERE id = $1", out.ID).Scan(&raw))
	assert.True(t, strings.HasSuffix(raw, "[[stage:pitch]]"))

	history, err := messages.History(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Here it is", history[1].Text)
	assert.Equal(t, entities.StagePitch, history[1].Stage)
	assert.Empty(t, history[2].Stage)

	counts, err := messages.StageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entities.StagePitch])

	require.NoError(t, messages.DeleteSession(ctx, s.ID))
	history, err = messages.History(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, sessions.Delete(ctx, s.ID))
	_, err = sessions.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresCatalog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	products := NewProductRepository(db.Pool)
	scripts := NewScriptRepository(db.Pool)
	campaigns := NewCampaignRepository(db.Pool)

	n, err := products.ImportCSV(ctx, strings.NewReader("title,description,price\nCreator Guide,playbook,29.00\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2900), list[0].PriceCents)

	c := &entities.Campaign{Name: "Launch", Keyword: "GUIDE", ProductID: list[0].ID, Active: true}
	require.NoError(t, campaigns.Create(ctx, c))
	active, err := campaigns.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, active.ID)

	old := &entities.Script{Name: "v1", Category: entities.StagePitch, Body: "old"}
	require.NoError(t, scripts.Create(ctx, old))
	newer := &entities.Script{Name: "v2", Category: entities.StagePitch, Body: "new {{product}}"}
	require.NoError(t, scripts.Create(ctx, newer))
	bodies, err := scripts.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new {{product}}", bodies[entities.StagePitch])

	assert.ErrorIs(t, products.Delete(ctx, 9999), ErrNotFound)
}
