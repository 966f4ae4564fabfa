package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedbot-api/internal/handler"
	"github.com/noah-isme/schedbot-api/internal/middleware"
	"github.com/noah-isme/schedbot-api/internal/repository"
	"github.com/noah-isme/schedbot-api/internal/service"
	"github.com/noah-isme/schedbot-api/pkg/config"
	"github.com/noah-isme/schedbot-api/pkg/database"
	"github.com/noah-isme/schedbot-api/pkg/llm"
	"github.com/noah-isme/schedbot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/schedbot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/schedbot-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewSQLite(cfg.SQLite)
	if err != nil {
		logr.Sugar().Fatalw("failed to open token store", "error", err)
	}
	defer db.Close() //nolint:errcheck

	tokens := repository.NewTokenRepository(db)

	authSvc, err := service.NewAuthService(tokens, cfg.Google, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init oauth", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	calendarSvc, err := service.NewCalendarService(tokens, authSvc.OAuthConfig(), cfg.Google, metricsSvc, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init calendar gateway", "error", err)
	}

	llmClient := llm.New(cfg.LLM, logr)
	extractor := service.NewExtractorService(llmClient, metricsSvc, logr)
	resolver := service.NewDateResolver()
	sessions := service.NewSessionStore(cfg.Sessions)
	chatSvc := service.NewChatService(extractor, calendarSvc, resolver, sessions, metricsSvc, logr)

	indexHandler := handler.NewIndexHandler(authSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	authHandler := handler.NewAuthHandler(authSvc, logr)
	eventsHandler := handler.NewEventsHandler(calendarSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.Session(cfg.Sessions))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	r.GET("/", indexHandler.Index)
	r.POST("/chat", chatHandler.Chat)
	r.GET("/authorize", authHandler.Authorize)
	r.GET("/oauth2callback", authHandler.Callback)
	r.GET("/logout", authHandler.Logout)
	r.GET("/events", eventsHandler.List)
	r.POST("/delete-event", eventsHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
