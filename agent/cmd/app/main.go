package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"moonbags-buybot/agent/database"
	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/agent/internal/bot"
	"moonbags-buybot/agent/internal/handlers"
	"moonbags-buybot/agent/internal/services"
	"moonbags-buybot/shared/config"
	"moonbags-buybot/shared/env"
	"moonbags-buybot/shared/logger"
	"moonbags-buybot/shared/notifications"

	"github.com/gin-gonic/gin"
)

const birdeyeBaseURL = "https://public-api.birdeye.so"

func startHeartbeat(ctx context.Context, appLogger *logger.Logger) {
	go func() {
		ticker := time.NewTicker(8 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				appLogger.Info("Heartbeat: Program running...")
			}
		}
	}()
}

func buildDSN(appLogger *logger.Logger) string {
	if env.DatabaseURL != "" {
		appLogger.Info("Using DATABASE_URL for database connection.")
		return env.DatabaseURL
	}

	appLogger.Warn("DATABASE_URL not set. Constructing DSN from PG* variables.")
	if env.PGHost == "" || env.PGPort == "" || env.PGUser == "" || env.PGDatabase == "" {
		appLogger.Fatal("Essential database connection variables are missing (DATABASE_URL or PG*)")
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		env.PGHost, env.PGUser, env.PGPassword, env.PGDatabase, env.PGPort)
}

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Fatalf("FATAL: Failed to load environment variables: %v", err)
	}

	cfg, err := config.LoadConfig("agent/config.yaml")
	if err != nil {
		log.Fatalf("FATAL: Failed to load agent/config.yaml: %v", err)
	}
	config.SetGlobalConfig(cfg)

	enableTelegramLogging := env.TelegramBotToken != "" && env.SystemLogChatID != 0
	appLogger, err := logger.NewLogger(logger.Config{
		Level:          cfg.Logging.Level,
		Environment:    cfg.App.Environment,
		EnableTelegram: enableTelegramLogging,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}

	dsn := buildDSN(appLogger)
	db, err := database.ConnectToDatabase(dsn)
	if err != nil {
		appLogger.Fatal("Database connection failed", "error", err)
	}
	database.MigrateDatabase(db, dsn)
	appLogger.Info("Database migrations completed.")

	if err := notifications.InitTelegramBot(); err != nil {
		appLogger.Fatal("Failed to initialize Telegram bot", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	groupStore := database.NewGroupStore(db)
	buyStore := database.NewBuyStore(db)
	boostStore := database.NewBoostStore(db)

	market := services.NewMarketDataClient(birdeyeBaseURL, env.BirdeyeAPIKey, appLogger)
	verifier := services.NewSuiRPCClient(env.SuiRPCURL, appLogger)
	sender := services.NewTelegramSender()

	links := alerts.LinkOptions{
		ExplorerURL:         env.SuiExplorerURL,
		TrendingChannelName: env.TrendingChannelName,
		VolBotLink:          env.VolBotLink,
	}
	dispatcher := services.NewDispatcher(groupStore, buyStore, boostStore, market, sender,
		links, cfg.Trending.MinBuyUSD, appLogger)

	sessions := bot.NewSessionStore(time.Duration(cfg.Wizard.SessionTTLMinutes)*time.Minute, appLogger)
	tgBot := bot.NewBot(notifications.GetBotInstance(), groupStore, boostStore, verifier, market,
		sessions, cfg, appLogger)

	var feed services.BuySource
	switch cfg.Feed.Mode {
	case "stream":
		if env.StreamWSURL == "" {
			appLogger.Fatal("feed.mode is \"stream\" but STREAM_WS_URL is not set")
		}
		feed = services.NewStreamer(env.StreamWSURL, cfg.Feed.StreamEventTypes, groupStore, market,
			dispatcher, appLogger)
	default:
		feed = services.NewPoller(groupStore, market, dispatcher,
			time.Duration(cfg.Feed.PollIntervalSeconds)*time.Second, appLogger)
	}

	leaderboard := services.NewLeaderboardJob(buyStore, boostStore, market, sender,
		time.Duration(cfg.Leaderboard.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Leaderboard.WindowMinutes)*time.Minute,
		cfg.Leaderboard.Size, appLogger)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.SetupRouter(handlers.StatusSource{
		GroupCount:  groupStore.Count,
		BoostCount:  func() (int64, error) { return boostStore.ActiveCount(time.Now()) },
		FeedMode:    cfg.Feed.Mode,
		Environment: cfg.App.Environment,
	}, appLogger)
	server := &http.Server{Addr: ":" + env.Port, Handler: router}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		tgBot.StartListening(ctx)
	}()
	go func() {
		defer wg.Done()
		feed.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		leaderboard.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sessions.RunSweeper(ctx)
	}()

	go func() {
		appLogger.Info("Starting web server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Could not start web server", "error", err)
		}
	}()

	startHeartbeat(ctx, appLogger)
	appLogger.Info("Application startup complete. Waiting for events...",
		"feedMode", cfg.Feed.Mode, "port", env.Port)

	<-ctx.Done()
	appLogger.Info("Shutdown signal received, stopping services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Web server shutdown error", "error", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		appLogger.Info("All services stopped cleanly.")
	case <-shutdownCtx.Done():
		appLogger.Warn("Shutdown timed out, exiting anyway.")
	}
}
