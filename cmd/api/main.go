package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anubis-chat/identity-graph/internal/config"
	"github.com/anubis-chat/identity-graph/internal/handler"
	"github.com/anubis-chat/identity-graph/internal/middleware"
	pgRepo "github.com/anubis-chat/identity-graph/internal/repository/postgres"
	redisRepo "github.com/anubis-chat/identity-graph/internal/repository/redis"
	"github.com/anubis-chat/identity-graph/internal/service"
	"github.com/anubis-chat/identity-graph/internal/service/matching"
	"github.com/anubis-chat/identity-graph/pkg/auth"
	"github.com/anubis-chat/identity-graph/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Repositories
	identityRepo := pgRepo.NewIdentityRepo(db)
	profileRepo := pgRepo.NewProfileRepo(db)
	linkRepo := pgRepo.NewLinkRepo(db)
	factorRepo := pgRepo.NewFactorRepo(db)
	requestRepo := pgRepo.NewLinkRequestRepo(db)
	auditRepo := pgRepo.NewAuditRepo(db)
	roomRepo := pgRepo.NewRoomRepo(db)
	graphTxRepo := pgRepo.NewGraphTxRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Matching configuration from config file
	matchingCfg := &matching.Config{
		UsernameThreshold:    cfg.Matching.UsernameThreshold,
		TemporalFloor:        cfg.Matching.TemporalFloor,
		TemporalWeight:       cfg.Matching.TemporalWeight,
		SocialMinShared:      cfg.Matching.SocialMinShared,
		SocialPerRoomWeight:  cfg.Matching.SocialPerRoomWeight,
		SocialCap:            cfg.Matching.SocialCap,
		UsernameBonus:        cfg.Matching.UsernameBonus,
		TemporalBonus:        cfg.Matching.TemporalBonus,
		SocialBonus:          cfg.Matching.SocialBonus,
		AutoLinkThreshold:    cfg.Matching.AutoLinkThreshold,
		CandidateLimit:       cfg.Matching.CandidateLimit,
		MinHistogramMessages: cfg.Matching.MinHistogramMessages,
	}

	// Services
	graphService, err := service.NewGraphService(
		identityRepo, profileRepo, linkRepo, auditRepo, roomRepo, cacheRepo,
		service.FusionBonuses{
			Username: matchingCfg.UsernameBonus,
			Temporal: matchingCfg.TemporalBonus,
			Social:   matchingCfg.SocialBonus,
		},
		cfg.Cache.ResolveTTL(),
	)
	if err != nil {
		log.Printf("Failed to initialize GraphService: %v", err)
		os.Exit(1)
	}

	matchingService, err := service.NewMatchingService(graphService, profileRepo, factorRepo, roomRepo, cacheRepo, matchingCfg)
	if err != nil {
		log.Printf("Failed to initialize MatchingService: %v", err)
		os.Exit(1)
	}

	verificationService, err := service.NewVerificationService(
		graphService, profileRepo, requestRepo, graphTxRepo,
		cfg.Verification.CodeTTL(), cfg.Verification.CodeLength, cfg.Verification.CodePepper,
	)
	if err != nil {
		log.Printf("Failed to initialize VerificationService: %v", err)
		os.Exit(1)
	}

	mergeService, err := service.NewMergeService(identityRepo, profileRepo, graphTxRepo, graphService)
	if err != nil {
		log.Printf("Failed to initialize MergeService: %v", err)
		os.Exit(1)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Handlers and middleware
	identityHandler := handler.NewIdentityHandler(graphService, matchingService, mergeService)
	verificationHandler := handler.NewVerificationHandler(verificationService)
	adminHandler := handler.NewAdminHandler(graphService, mergeService, verificationService, jwtService)
	adminAuth := middleware.NewAdminAuthMiddleware(jwtService, cfg.Auth.AdminAPIKeyHash)

	router := gin.Default()
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Printf("Failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api/v1")
	{
		profiles := api.Group("/profiles")
		{
			profiles.POST("", identityHandler.UpsertProfile)
		}

		identities := api.Group("/identities")
		{
			identities.GET("/resolve", identityHandler.Resolve)
			identities.GET("/search", identityHandler.Search)
			identities.POST("/analyze", identityHandler.Analyze)
			identities.POST("/unlink", identityHandler.Unlink)
			identities.POST("/link-requests", verificationHandler.RequestLink)
			identities.POST("/verify", verificationHandler.Verify)
		}

		rooms := api.Group("/rooms")
		{
			rooms.POST("/presence", identityHandler.RecordRoomPresence)
		}

		admin := api.Group("/admin")
		admin.Use(adminAuth.RequireAdmin())
		{
			admin.POST("/token", adminHandler.IssueToken)
			admin.POST("/identities/merge", adminHandler.Merge)
			admin.GET("/identities/:id/audit", adminHandler.AuditTrail)
			admin.GET("/audit/export", adminHandler.ExportAudit)
			admin.POST("/link-requests/expire", adminHandler.ExpireOverdueRequests)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
