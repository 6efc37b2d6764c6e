package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freakfest/internal/artists"
	"freakfest/internal/auth"
	"freakfest/internal/gallery"
	"freakfest/internal/imageproxy"
	"freakfest/internal/live"
	"freakfest/internal/media"
	"freakfest/internal/subscribers"
	"freakfest/internal/web"
	"freakfest/pkg/database"
	"freakfest/pkg/models"
	"freakfest/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig("")
	if err != nil {
		panic(err)
	}
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg utils.Config, logger *zap.Logger) error {
	db, err := database.OpenAndMigrate(database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	baseCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), web.RequestLogger(logger.Named("http")))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := live.NewHub(logger.Named("live"))
	live.RegisterRoutes(router, hub, !cfg.IsProduction())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	api := router.Group("/api")

	// Artists (public)
	artistLog := logger.Named("artists")
	store := artists.NewStore(db)
	csvSrc := artists.NewCSVSource(cfg.Sheet.ID, cfg.Sheet.GID)
	csvSrc.BaseURL = cfg.Sheet.Base
	htmlSrc := artists.NewHTMLSource(cfg.Sheet.ID, cfg.Sheet.GID)
	htmlSrc.BaseURL = cfg.Sheet.Base
	loader := artists.NewLoader(artistLog, csvSrc, htmlSrc, artists.SnapshotSource{Store: store})
	loader.OnLoad = func(ctx context.Context, lineup []models.Artist) {
		if err := store.SaveSnapshot(ctx, lineup); err != nil {
			artistLog.Warn("save artist snapshot failed", zap.Error(err))
		}
		hub.BroadcastJSON(live.EventArtistsUpdated, gin.H{"count": len(lineup)})
	}
	cache := artists.NewCache(cfg.Artists.TTL, time.Now)
	artistHandler := artists.NewHandler(loader, cache, artistLog)
	artistHandler.RegisterRoutes(api)

	// Instagram image proxy (public)
	imageproxy.NewHandler(logger.Named("imageproxy")).RegisterRoutes(api)

	// Media
	targets, err := cfg.MediaTargets()
	if err != nil {
		return err
	}
	slots, err := cfg.FlyerSlots()
	if err != nil {
		return err
	}
	syncer := media.NewSyncer(cfg.AssetsDir(), logger.Named("media"))
	syncer.ReleaseBase = cfg.Media.ReleaseBase
	syncer.Tag = cfg.Media.ReleaseTag
	syncer.Targets = targets
	syncer.Slots = slots
	syncer.Notifier = hub

	// Gallery (public)
	galleryDir := filepath.Join(cfg.AssetsDir(), "gallery", "freakfest")
	for _, t := range targets {
		if t.Name == "gallery" {
			galleryDir = filepath.Join(cfg.AssetsDir(), filepath.FromSlash(t.Dir))
		}
	}
	gallery.NewHandler(galleryDir, cfg.Gallery.ThumbCacheDir, logger.Named("gallery")).RegisterRoutes(api)

	// Subscribers (public signup)
	subRepo := subscribers.NewRepo(db)
	subHandler := subscribers.NewHandler(subRepo, logger.Named("subscribers"))
	subHandler.RegisterRoutes(api)

	// Admin
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	adminGroup := api.Group("/admin")
	auth.NewHandler(tokenSvc, cfg.Auth.AdminPasswordHash, logger.Named("auth")).RegisterRoutes(adminGroup)

	protected := api.Group("/admin")
	protected.Use(auth.AuthMiddleware(tokenSvc))
	media.NewHandler(baseCtx, syncer).RegisterRoutes(protected)
	subHandler.RegisterAdminRoutes(protected)
	artistHandler.RegisterAdminRoutes(protected)

	// Static frontend; must come last so NoRoute sees every API route.
	if err := web.Mount(router, cfg.PublicDir, syncer.LFSGuard("/assets")); err != nil {
		logger.Warn("static serving disabled", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	if cfg.SyncMediaOnStart() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.EnsureOnce(baseCtx)
		}()
	} else if err := syncer.BuildManifests(); err != nil {
		logger.Warn("manifest build failed", zap.Error(err))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP API server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	logger.Info("shutting down server")
	stopBackground()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return serveErr
}
