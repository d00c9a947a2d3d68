package usecases

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"dmcheckout/internal/autoreply"
	"dmcheckout/internal/entities"
	"dmcheckout/internal/interfaces"
)

const (
	MaxTitleLength   = 255
	MaxScriptLength  = 5000
	MaxKeywordLength = 100
)

// CatalogUsecase manages products, scripts and campaigns.
type CatalogUsecase struct {
	products  interfaces.ProductCatalog
	scripts   interfaces.ScriptCatalog
	campaigns interfaces.CampaignCatalog
}

func NewCatalogUsecase(products interfaces.ProductCatalog, scripts interfaces.ScriptCatalog, campaigns interfaces.CampaignCatalog) *CatalogUsecase {
	return &CatalogUsecase{
		products:  products,
		scripts:   scripts,
		campaigns: campaigns,
	}
}

// Products

func (u *CatalogUsecase) ListProducts(ctx context.Context) ([]entities.Product, error) {
	products, err := u.products.List(ctx)
	return products, storeError("products", err)
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, id int) (*entities.Product, error) {
	p, err := u.products.Get(ctx, id)
	if err != nil {
		return nil, storeError("product", err)
	}
	return p, nil
}

func (u *CatalogUsecase) SaveProduct(ctx context.Context, p *entities.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" || len(p.Title) > MaxTitleLength {
		return invalid("title must be 1-255 characters")
	}
	if p.PriceCents < 0 {
		return invalid("price cannot be negative")
	}
	if p.ID == 0 {
		return storeError("product", u.products.Create(ctx, p))
	}
	return storeError("product", u.products.Update(ctx, p))
}

func (u *CatalogUsecase) DeleteProduct(ctx context.Context, id int) error {
	return storeError("product", u.products.Delete(ctx, id))
}

func (u *CatalogUsecase) ImportProducts(ctx context.Context, src io.Reader) (int, error) {
	n, err := u.products.ImportCSV(ctx, src)
	if err != nil {
		return 0, newError(ErrorInvalidInput, "could not import CSV", err)
	}
	log.Info().Int("imported", n).Msg("products imported")
	return n, nil
}

// Scripts

func (u *CatalogUsecase) ListScripts(ctx context.Context) ([]entities.Script, error) {
	scripts, err := u.scripts.List(ctx)
	return scripts, storeError("scripts", err)
}

func (u *CatalogUsecase) GetScript(ctx context.Context, id int) (*entities.Script, error) {
	s, err := u.scripts.Get(ctx, id)
	if err != nil {
		return nil, storeError("script", err)
	}
	return s, nil
}

func (u *CatalogUsecase) SaveScript(ctx context.Context, s *entities.Script) error {
	category, ok := entities.ParseStage(string(s.Category))
	if !ok {
		return invalid("category must be one of pitch, qualify, checkout, delivery, objection")
	}
	s.Category = category
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = string(category)
	}
	if strings.TrimSpace(s.Body) == "" || len(s.Body) > MaxScriptLength {
		return invalid("body must be 1-5000 characters")
	}
	// A script body ending in a stage marker would be stripped on read.
	s.Body = stripMarkers(s.Body)
	if s.ID == 0 {
		return storeError("script", u.scripts.Create(ctx, s))
	}
	return storeError("script", u.scripts.Update(ctx, s))
}

func (u *CatalogUsecase) DeleteScript(ctx context.Context, id int) error {
	return storeError("script", u.scripts.Delete(ctx, id))
}

// PreviewScript renders body with the variables a campaign would supply.
// With campaignID 0 the active campaign is used; with no campaign the
// placeholders for keyword and product stay visible.
func (u *CatalogUsecase) PreviewScript(ctx context.Context, body string, campaignID int) (string, error) {
	var (
		campaign *entities.Campaign
		err      error
	)
	if campaignID != 0 {
		campaign, err = u.campaigns.Get(ctx, campaignID)
		if err != nil {
			return "", storeError("campaign", err)
		}
	} else if campaign, err = u.campaigns.Active(ctx); err != nil {
		campaign = nil
	}

	vars := map[string]string{}
	if campaign != nil {
		vars["keyword"] = campaign.Keyword
		if p, err := u.products.Get(ctx, campaign.ProductID); err == nil {
			vars = autoreply.Variables(autoreply.FlowContext{
				Keyword: campaign.Keyword,
				Product: autoreply.Product{Title: p.Title, PriceCents: p.PriceCents},
			})
		}
	}
	return autoreply.RenderTemplate(body, vars), nil
}

// Campaigns

func (u *CatalogUsecase) ListCampaigns(ctx context.Context) ([]entities.Campaign, error) {
	campaigns, err := u.campaigns.List(ctx)
	return campaigns, storeError("campaigns", err)
}

func (u *CatalogUsecase) GetCampaign(ctx context.Context, id int) (*entities.Campaign, error) {
	c, err := u.campaigns.Get(ctx, id)
	if err != nil {
		return nil, storeError("campaign", err)
	}
	return c, nil
}

func (u *CatalogUsecase) SaveCampaign(ctx context.Context, c *entities.Campaign) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Keyword = strings.TrimSpace(c.Keyword)
	if c.Name == "" || len(c.Name) > MaxTitleLength {
		return invalid("name must be 1-255 characters")
	}
	if c.Keyword == "" || len(c.Keyword) > MaxKeywordLength {
		return invalid("keyword must be 1-100 characters")
	}
	if c.ProductID != 0 {
		if _, err := u.products.Get(ctx, c.ProductID); err != nil {
			return storeError("product", err)
		}
	}
	if c.ID == 0 {
		return storeError("campaign", u.campaigns.Create(ctx, c))
	}
	return storeError("campaign", u.campaigns.Update(ctx, c))
}

func (u *CatalogUsecase) DeleteCampaign(ctx context.Context, id int) error {
	return storeError("campaign", u.campaigns.Delete(ctx, id))
}
