package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"dmcheckout/internal/config"
	"dmcheckout/internal/infrastructure"
	"dmcheckout/internal/interfaces/http"
	"dmcheckout/internal/repository"
	"dmcheckout/internal/usecases"
)

func main() {
	cfg := config.Load()
	infrastructure.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	// Initialize Repositories
	sessionRepo := repository.NewSessionRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	productRepo := repository.NewProductRepository(pgClient.Pool)
	scriptRepo := repository.NewScriptRepository(pgClient.Pool)
	campaignRepo := repository.NewCampaignRepository(pgClient.Pool)
	configRepo := repository.NewConfigRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)

	// Initialize Usecases & Services
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)
	if err := authUsecase.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("failed to ensure admin user")
	}

	catalog := usecases.NewCatalogUsecase(productRepo, scriptRepo, campaignRepo)
	dashboard := usecases.NewDashboardUsecase(sessionRepo, messageRepo, catalog, configRepo)
	locker := infrastructure.NewSessionLocker()
	conversation := usecases.NewConversationService(usecases.ConversationStores{
		Sessions:  sessionRepo,
		Messages:  messageRepo,
		Products:  productRepo,
		Scripts:   scriptRepo,
		Campaigns: campaignRepo,
		Settings:  configRepo,
	}, locker)

	// Rate limiters: operators on the API, senders on live channels
	apiLimiter := infrastructure.NewKeyedLimiter(cfg.APIRatePerSec, cfg.APIRateBurst, 10*time.Minute)
	liveLimiter := infrastructure.NewKeyedLimiter(cfg.LiveRatePerSec, cfg.LiveRateBurst, 30*time.Minute)
	go apiLimiter.RunCleanup(time.Minute, ctx.Done())
	go liveLimiter.RunCleanup(time.Minute, ctx.Done())

	dispatcher := infrastructure.NewLiveDispatcher(conversation, liveLimiter)

	deps := http.Dependencies{
		Conversation: conversation,
		Catalog:      catalog,
		Dashboard:    dashboard,
		Auth:         authUsecase,
		Web:          dispatcher,
		Limiters:     map[string]*infrastructure.KeyedLimiter{"api": apiLimiter, "live": liveLimiter},
		Locker:       locker,
	}

	// WhatsApp (single linked device)
	if cfg.WhatsAppEnabled {
		waClient, err := infrastructure.NewWhatsAppClient(cfg.WhatsAppDeviceDB, cfg.LogLevel)
		if err != nil {
			log.Error().Err(err).Msg("whatsapp disabled")
		} else {
			waClient.Listen(dispatcher)
			if err := waClient.Connect(); err != nil {
				log.Error().Err(err).Msg("whatsapp connect failed")
			}
			defer waClient.Disconnect()
			deps.WhatsApp = waClient
		}
	}

	// Telegram polling
	telegram := infrastructure.NewTelegramChannel(infrastructure.NewTelegramClient(cfg.TelegramToken), dispatcher)
	telegram.Start()
	defer telegram.Stop()
	if !telegram.Running() {
		log.Info().Msg("telegram disabled (token missing or invalid)")
	}

	// Setup HTTP server
	r := gin.New()
	r.Use(gin.Recovery())
	http.SetupRoutes(r, deps, http.NewMiddleware(cfg.JWTSecret, apiLimiter))

	srv := &nethttp.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
