package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projet/internal/auth"
	"projet/internal/clients"
	"projet/internal/config"
	"projet/internal/db"
	"projet/internal/editor"
	"projet/internal/identity"
	"projet/internal/journal"
	"projet/internal/listing"
	"projet/internal/middleware"
	"projet/internal/record"
	"projet/internal/revision"
	"projet/internal/session"
	"projet/internal/user"
	"projet/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect database, redis and the notify pool
	conns := clients.New(cfg, logger)
	if err := conns.Init(ctx); err != nil {
		return err
	}
	defer conns.Close()

	if err := db.Migrate(conns.DB, logger); err != nil {
		return err
	}

	userService := user.NewService(user.NewRepository(conns.DB), logger)
	if _, err := db.SeedOwner(ctx, userService, cfg, logger); err != nil {
		return err
	}

	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, logger)

	// Records
	store := record.NewStore(
		record.NewRepository(conns.DB, cfg.RevisionDeletePolicy),
		conns.Notifier(),
		pool,
		logger,
	)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("start record store: %w", err)
	}
	manager := revision.NewManager(store, logger)

	// Session
	var authn identity.Authenticator = userService
	if cfg.IdentityURL != "" {
		authn = identity.NewRemoteAuthenticator(cfg.IdentityURL, cfg.OwnerEmail, userService)
		logger.Info("Using remote identity", zap.String("url", cfg.IdentityURL))
	}
	signer := auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL)
	provider := identity.NewService(authn, userService, signer, conns.Cache, logger)
	gate := session.NewGate(provider, cfg.EntryPath, logger)

	// Initialize handler
	sessionHandler := session.NewHandler(provider, cfg.OwnerEmail, cfg.IsProduction())
	listHandler := listing.NewHandler(store, gate, logger)
	journalHandler := journal.NewHandler(journal.NewService(store, manager, logger))
	editorHandler := editor.NewHandler(editor.NewService(store, manager, conns.Cache, cfg.DraftTTL, logger))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.ErrorHandler(logger))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}
	if cfg.Environment == "development" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := conns.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "subscribers": store.Subscribers()})
	})

	// Session routes
	router.POST("/unlock", sessionHandler.Unlock)

	private := router.Group("/", gate.RequireAuth())
	private.DELETE("/lock", sessionHandler.Lock)
	private.GET("/me", sessionHandler.Me)

	private.GET("/records", listHandler.List)
	private.GET("/tags", listHandler.Tags)
	private.GET("/live/records", listHandler.Stream)

	private.POST("/records", journalHandler.Create)
	private.POST("/records/quick", journalHandler.QuickCreate)
	private.GET("/records/:id", journalHandler.Show)
	private.PUT("/records/:id", journalHandler.Update)
	private.DELETE("/records/:id", journalHandler.Delete)
	private.GET("/records/:id/revisions", journalHandler.Revisions)

	private.POST("/drafts", editorHandler.Open)
	private.GET("/drafts/:id", editorHandler.Show)
	private.PATCH("/drafts/:id", editorHandler.Edit)
	private.POST("/drafts/:id/keys", editorHandler.Key)
	private.DELETE("/drafts/:id/tags/:tag", editorHandler.RemoveTag)
	private.POST("/drafts/:id/restore", editorHandler.Restore)
	private.POST("/drafts/:id/save", editorHandler.Save)
	private.DELETE("/drafts/:id", editorHandler.Discard)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router.Handler(),
		// live streams end when ctx is cancelled
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	pool.Shutdown(shutdownCtx)

	logger.Info("Server shutdown complete")
	return nil
}
