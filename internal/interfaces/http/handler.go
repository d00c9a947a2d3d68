package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"dmcheckout/internal/infrastructure"
	"dmcheckout/internal/usecases"
)

// WhatsAppLink is the part of the WhatsApp client the dashboard needs.
type WhatsAppLink interface {
	Status() infrastructure.WhatsAppStatus
	GetQR() string
	Logout() error
}

// Dependencies are the collaborators the HTTP layer serves. WhatsApp and
// Web may be nil when those channels are disabled. Limiters and Locker are
// only read for the dashboard stats.
type Dependencies struct {
	Conversation *usecases.ConversationService
	Catalog      *usecases.CatalogUsecase
	Dashboard    *usecases.DashboardUsecase
	Auth         *usecases.AuthUsecase
	WhatsApp     WhatsAppLink
	Web          *infrastructure.LiveDispatcher
	Limiters     map[string]*infrastructure.KeyedLimiter
	Locker       *infrastructure.SessionLocker
}

type Handler struct {
	conversation *usecases.ConversationService
	catalog      *usecases.CatalogUsecase
	dashboard    *usecases.DashboardUsecase
	auth         *usecases.AuthUsecase
	whatsapp     WhatsAppLink
	web          *infrastructure.LiveDispatcher
	limiters     map[string]*infrastructure.KeyedLimiter
	locker       *infrastructure.SessionLocker
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		conversation: deps.Conversation,
		catalog:      deps.Catalog,
		dashboard:    deps.Dashboard,
		auth:         deps.Auth,
		whatsapp:     deps.WhatsApp,
		web:          deps.Web,
		limiters:     deps.Limiters,
		locker:       deps.Locker,
	}
}

func SetupRoutes(r *gin.Engine, deps Dependencies, middleware *Middleware) {
	h := NewHandler(deps)

	r.Use(RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public Routes
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/webhook/web", h.HandleWebMessage)
	r.POST("/api/auth/login", h.Login)

	// Protected Dashboard Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser())
	{
		api.GET("/dashboard/stats", h.GetStats)
		api.GET("/settings", h.GetSettings)
		api.POST("/settings", h.SetSetting)

		// Conversation Routes
		api.GET("/sessions", h.ListSessions)
		api.POST("/sessions", h.StartSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.GET("/sessions/:id/messages", h.GetHistory)
		api.POST("/sessions/:id/messages", h.SendInbound)
		api.POST("/sessions/:id/replies", h.SendOperator)
		api.POST("/sessions/:id/reset", h.ResetSession)

		// Catalog Routes
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.POST("/products", h.CreateProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.POST("/products/import", h.ImportProducts)

		api.GET("/scripts", h.ListScripts)
		api.GET("/scripts/:id", h.GetScript)
		api.POST("/scripts", h.CreateScript)
		api.PUT("/scripts/:id", h.UpdateScript)
		api.DELETE("/scripts/:id", h.DeleteScript)
		api.POST("/scripts/preview", h.PreviewScript)

		api.GET("/campaigns", h.ListCampaigns)
		api.GET("/campaigns/:id", h.GetCampaign)
		api.POST("/campaigns", h.CreateCampaign)
		api.PUT("/campaigns/:id", h.UpdateCampaign)
		api.DELETE("/campaigns/:id", h.DeleteCampaign)

		// WhatsApp Routes
		api.GET("/whatsapp/status", h.GetWhatsAppStatus)
		api.GET("/whatsapp/qr", h.GetWhatsAppQR)
	}

	// Admin-only Routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/users", h.RegisterOperator)
		admin.POST("/whatsapp/logout", h.LogoutWhatsApp)
	}
}

// respondError maps usecase error codes onto HTTP statuses. Internal details
// are logged, never returned.
func respondError(c *gin.Context, err error) {
	var ue *usecases.Error
	if !errors.As(err, &ue) {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unclassified error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch ue.Code {
	case usecases.ErrorNotFound:
		status = http.StatusNotFound
	case usecases.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecases.ErrorConflict:
		status = http.StatusConflict
	case usecases.ErrorUnauthorized:
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "Internal server error", "code": ue.Code})
		return
	}
	c.JSON(status, gin.H{"error": ue.Reason, "code": ue.Code})
}

// paramID parses a numeric :id path parameter, answering 400 when it is not one.
func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) RegisterOperator(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidSlug(req.Username) || len(req.Password) < MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
		return
	}
	if err := h.auth.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
