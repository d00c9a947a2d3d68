package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dmcheckout/internal/entities"
)

// Products

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	h.saveProduct(c, 0, http.StatusCreated)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.saveProduct(c, id, http.StatusOK)
}

func (h *Handler) saveProduct(c *gin.Context, id, status int) {
	var product entities.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	product.ID = id
	product.Title = SanitizeString(product.Title)
	product.Description = SanitizeString(product.Description)
	if err := h.catalog.SaveProduct(c.Request.Context(), &product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ImportProducts accepts a multipart "file" field or a raw text/csv body.
func (h *Handler) ImportProducts(c *gin.Context) {
	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	n, err := h.catalog.ImportProducts(c.Request.Context(), src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "imported", "count": n})
}

// Scripts

func (h *Handler) ListScripts(c *gin.Context) {
	scripts, err := h.catalog.ListScripts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scripts)
}

func (h *Handler) GetScript(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	script, err := h.catalog.GetScript(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, script)
}

func (h *Handler) CreateScript(c *gin.Context) {
	h.saveScript(c, 0, http.StatusCreated)
}

func (h *Handler) UpdateScript(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.saveScript(c, id, http.StatusOK)
}

func (h *Handler) saveScript(c *gin.Context, id, status int) {
	var script entities.Script
	if err := c.ShouldBindJSON(&script); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	script.ID = id
	script.Name = SanitizeString(script.Name)
	script.Body = SanitizeString(script.Body)
	if err := h.catalog.SaveScript(c.Request.Context(), &script); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, script)
}

func (h *Handler) DeleteScript(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteScript(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) PreviewScript(c *gin.Context) {
	var payload struct {
		Body       string `json:"body"`
		CampaignID int    `json:"campaign_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	text, err := h.catalog.PreviewScript(c.Request.Context(), SanitizeString(payload.Body), payload.CampaignID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// Campaigns

func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.catalog.ListCampaigns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *Handler) GetCampaign(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	campaign, err := h.catalog.GetCampaign(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	h.saveCampaign(c, 0, http.StatusCreated)
}

func (h *Handler) UpdateCampaign(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.saveCampaign(c, id, http.StatusOK)
}

func (h *Handler) saveCampaign(c *gin.Context, id, status int) {
	var campaign entities.Campaign
	if err := c.ShouldBindJSON(&campaign); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	campaign.ID = id
	campaign.Name = SanitizeString(campaign.Name)
	campaign.Keyword = SanitizeString(campaign.Keyword)
	if err := h.catalog.SaveCampaign(c.Request.Context(), &campaign); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, campaign)
}

func (h *Handler) DeleteCampaign(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCampaign(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
