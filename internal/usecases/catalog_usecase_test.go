package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmcheckout/internal/entities"
	"dmcheckout/internal/testutil"
)

func newCatalog() (*CatalogUsecase, *testutil.Store) {
	store := testutil.NewStore()
	return NewCatalogUsecase(store.Products(), store.Scripts(), store.Campaigns()), store
}

func TestSaveProductValidation(t *testing.T) {
	uc, _ := newCatalog()
	ctx := context.Background()

	tests := []struct {
		name    string
		product entities.Product
		code    ErrorCode
	}{
		{"empty title", entities.Product{Title: "  "}, ErrorInvalidInput},
		{"long title", entities.Product{Title: strings.Repeat("x", MaxTitleLength+1)}, ErrorInvalidInput},
		{"negative price", entities.Product{Title: "Guide", PriceCents: -1}, ErrorInvalidInput},
		{"unknown id", entities.Product{ID: 77, Title: "Guide"}, ErrorNotFound},
		{"ok", entities.Product{Title: " Guide ", PriceCents: 100}, ""},
		{"duplicate title", entities.Product{Title: "Guide", PriceCents: 5}, ErrorConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			err := uc.SaveProduct(ctx, &p)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}

	products, err := uc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Guide", products[0].Title)
}

func TestImportProducts(t *testing.T) {
	uc, _ := newCatalog()
	ctx := context.Background()

	csv := "title,description,price\nGuide,PDF,$29.00\nPreset pack,,9.5\n"
	n, err := uc.ImportProducts(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// re-importing updates by title
	n, err = uc.ImportProducts(ctx, strings.NewReader("title,description,price\nGuide,PDF v2,39\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	products, err := uc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(3900), products[0].PriceCents)
	assert.Equal(t, int64(950), products[1].PriceCents)

	_, err = uc.ImportProducts(ctx, strings.NewReader("name,cost\nx,1\n"))
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))
}

func TestSaveScript(t *testing.T) {
	uc, _ := newCatalog()
	ctx := context.Background()

	s := &entities.Script{Category: "Pitch", Body: "Hi {{product}}\n[[stage:checkout]]"}
	require.NoError(t, uc.SaveScript(ctx, s))
	assert.Equal(t, entities.StagePitch, s.Category)
	assert.Equal(t, "pitch", s.Name)
	assert.Equal(t, "Hi {{product}}", s.Body)

	err := uc.SaveScript(ctx, &entities.Script{Category: "upsell", Body: "x"})
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))

	err = uc.SaveScript(ctx, &entities.Script{Category: entities.StagePitch, Body: " "})
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))

	err = uc.SaveScript(ctx, &entities.Script{Category: entities.StagePitch, Body: strings.Repeat("b", MaxScriptLength+1)})
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))

	require.NoError(t, uc.DeleteScript(ctx, s.ID))
	_, err = uc.GetScript(ctx, s.ID)
	assert.Equal(t, ErrorNotFound, CodeOf(err))
}

func TestSaveCampaign(t *testing.T) {
	uc, _ := newCatalog()
	ctx := context.Background()

	err := uc.SaveCampaign(ctx, &entities.Campaign{Name: "Launch", Keyword: " "})
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))

	err = uc.SaveCampaign(ctx, &entities.Campaign{Name: "", Keyword: "GUIDE"})
	assert.Equal(t, ErrorInvalidInput, CodeOf(err))

	err = uc.SaveCampaign(ctx, &entities.Campaign{Name: "Launch", Keyword: "GUIDE", ProductID: 12})
	assert.Equal(t, ErrorNotFound, CodeOf(err))

	c := &entities.Campaign{Name: "Launch", Keyword: " GUIDE ", Active: true}
	require.NoError(t, uc.SaveCampaign(ctx, c))
	assert.Equal(t, "GUIDE", c.Keyword)

	got, err := uc.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestPreviewScript(t *testing.T) {
	uc, _ := newCatalog()
	ctx := context.Background()
	body := "{{product}} for {{price}}, reply {{keyword}} {{unknown}}"

	out, err := uc.PreviewScript(ctx, body, 0)
	require.NoError(t, err)
	assert.Equal(t, body, out, "no campaign leaves placeholders visible")

	p := &entities.Product{Title: "Creator Guide", PriceCents: 2900}
	require.NoError(t, uc.SaveProduct(ctx, p))
	bare := &entities.Campaign{Name: "Bare", Keyword: "FREE"}
	require.NoError(t, uc.SaveCampaign(ctx, bare))
	c := &entities.Campaign{Name: "Launch", Keyword: "GUIDE", ProductID: p.ID, Active: true}
	require.NoError(t, uc.SaveCampaign(ctx, c))

	out, err = uc.PreviewScript(ctx, body, 0)
	require.NoError(t, err)
	assert.Equal(t, "Creator Guide for $29.00, reply GUIDE {{unknown}}", out)

	out, err = uc.PreviewScript(ctx, body, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, "{{product}} for {{price}}, reply FREE {{unknown}}", out)

	_, err = uc.PreviewScript(ctx, body, 404)
	assert.Equal(t, ErrorNotFound, CodeOf(err))
}
