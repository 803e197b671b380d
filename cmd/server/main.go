package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
	"github.com/mesbahtanvir/docuchan/backend/internal/config"
	"github.com/mesbahtanvir/docuchan/backend/internal/handlers"
	"github.com/mesbahtanvir/docuchan/backend/internal/live"
	"github.com/mesbahtanvir/docuchan/backend/internal/middleware"
	"github.com/mesbahtanvir/docuchan/backend/internal/objectstore"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
	"github.com/mesbahtanvir/docuchan/backend/internal/store/firestorestore"
	"github.com/mesbahtanvir/docuchan/backend/internal/store/memstore"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
	"github.com/mesbahtanvir/docuchan/backend/internal/workers"
	"github.com/mesbahtanvir/docuchan/backend/pkg/firebase"
)

// memStoreScheme selects the in-process Store Adapter instead of
// Firestore when store.uri starts with it — handy for local runs and
// the container that ships this binary without cloud credentials.
const memStoreScheme = "mem://"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting docuchan backend",
		zap.String("addr", cfg.GetServerAddr()),
	)

	ctx := context.Background()

	adapter, closeAdapter, err := buildStoreAdapter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build store adapter", zap.Error(err))
	}
	defer closeAdapter()

	hasherPool := workers.NewPasswordHasherPool(cfg.Auth.HasherPoolSize, 0, logger.With(zap.String("component", "password-hasher")))
	defer hasherPool.Stop()

	authCore := auth.NewCore(
		adapter,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL.Value(),
		cfg.Auth.RefreshTokenTTL.Value(),
		cfg.Auth.BcryptCost,
		cfg.Auth.LockoutThreshold,
		cfg.Auth.LockoutWindow.Value(),
		cfg.Auth.BlocklistLookupTimeout.Value(),
		auth.WithHasher(hasherPool),
	)

	workerManager := workers.NewManager(&workers.ManagerConfig{
		Enabled:                cfg.Workers.Enabled,
		BlocklistSweepInterval: cfg.Auth.BlocklistSweepInterval.Value(),
	}, &workers.Dependencies{AuthCore: authCore}, logger.With(zap.String("component", "workers")))
	if err := workerManager.Start(); err != nil {
		logger.Error("failed to start worker manager", zap.Error(err))
	}
	defer workerManager.Stop()

	objStore, closeObjStore, err := buildObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build object store", zap.Error(err))
	}
	defer closeObjStore()

	crudHandler := handlers.NewCRUDHandler(adapter, logger)
	authHandler := handlers.NewAuthHandler(authCore, logger)
	healthHandler := handlers.NewHealthHandler(adapter)
	authMiddleware := middleware.NewAuthMiddleware(authCore, logger)
	var objectHandler *handlers.ObjectHandler
	if objStore != nil {
		objectHandler = handlers.NewObjectHandler(objStore, logger)
	}

	liveHub := live.NewHub(authCore, adapter, live.Config{
		MaxChannels:       cfg.Live.MaxChannels,
		HeartbeatInterval: cfg.Live.HeartbeatInterval.Value(),
		PingTimeout:       cfg.Live.PingTimeout.Value(),
		OutboundQueueSize: cfg.Live.OutboundQueueSize,
	}, logger.With(zap.String("component", "live")))

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS(&cfg.Server.CORS))

	router.HandleFunc("/healthz", healthHandler.Handle).Methods(http.MethodGet)
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		router.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	authRoutes := router.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/refresh", authHandler.Refresh).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/{collection}", crudHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/{collection}", crudHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/{collection}/{id}", crudHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/{collection}/{id}", crudHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/{collection}/{id}", crudHandler.Delete).Methods(http.MethodDelete)

	if objectHandler != nil {
		objects := router.PathPrefix("/objects").Subrouter()
		objects.Use(authMiddleware.Authenticate)
		objects.HandleFunc("/{path:.*}/signed-url", objectHandler.SignedURL).Methods(http.MethodGet)
		objects.HandleFunc("/{path:.*}", objectHandler.Put).Methods(http.MethodPut)
		objects.HandleFunc("/{path:.*}", objectHandler.Get).Methods(http.MethodGet)
		objects.HandleFunc("/{path:.*}", objectHandler.Delete).Methods(http.MethodDelete)
	}

	if cfg.GetLiveAddr() == cfg.GetServerAddr() {
		router.Handle("/ws", liveHub).Methods(http.MethodGet)
	}

	logger.Info("routes registered", zap.Int("count", countRoutes(router)))

	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	var liveServer *http.Server
	if cfg.GetLiveAddr() != cfg.GetServerAddr() {
		liveRouter := mux.NewRouter()
		liveRouter.Use(middleware.Recovery(logger))
		liveRouter.Handle("/ws", liveHub).Methods(http.MethodGet)
		liveServer = &http.Server{Addr: cfg.GetLiveAddr(), Handler: liveRouter}
		go func() {
			logger.Info("live channel listening", zap.String("addr", liveServer.Addr))
			if err := liveServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("live server failed", zap.Error(err))
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Port != 0 {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		metricsServer = &http.Server{Addr: cfg.GetMetricsAddr(), Handler: metricsRouter}
		go func() {
			logger.Info("metrics listening", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if liveServer != nil {
		if err := liveServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("live server forced to shutdown", zap.Error(err))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// buildStoreAdapter picks the Store Adapter implementation from
// store.uri's scheme: "mem://" for the in-process adapter, anything
// else for Firestore. The returned closer releases the underlying
// Firebase clients, if any were opened.
func buildStoreAdapter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Adapter, func(), error) {
	if strings.HasPrefix(cfg.Store.URI, memStoreScheme) {
		logger.Info("using in-memory store adapter", zap.String("uri", cfg.Store.URI))
		return memstore.New(), func() {}, nil
	}

	fbAdmin, err := firebase.Initialize(ctx, &firebase.Config{
		ProjectID:       cfg.Store.Database,
		CredentialsPath: cfg.ObjectStore.CredentialsPath,
		StorageBucket:   cfg.ObjectStore.Bucket,
		DatabaseID:      cfg.Store.Database,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Firebase clients: %w", err)
	}

	adapter := firestorestore.New(fbAdmin.Firestore, cfg.Store.PollInterval.Value())

	logger.Info("using Firestore store adapter", zap.String("database", cfg.Store.Database))
	return adapter, func() {
		if err := fbAdmin.Close(); err != nil {
			logger.Error("failed to close Firebase clients", zap.Error(err))
		}
	}, nil
}

// buildObjectStore builds the Object Store façade from its own Cloud
// Storage client, independent of which Store Adapter is in use — a
// bucket can be configured even when the document store runs against
// the in-process adapter. Returns a nil store when no bucket is
// configured, so object routes are simply not registered.
func buildObjectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*objectstore.Store, func(), error) {
	if cfg.ObjectStore.Bucket == "" {
		logger.Info("object store disabled (no bucket configured)")
		return nil, func() {}, nil
	}

	var opts []option.ClientOption
	if cfg.ObjectStore.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.ObjectStore.CredentialsPath))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize object store client: %w", err)
	}

	return objectstore.New(client, cfg.ObjectStore.Bucket), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close object store client", zap.Error(err))
		}
	}, nil
}

// countRoutes counts the number of registered routes.
func countRoutes(router *mux.Router) int {
	count := 0
	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		count++
		return nil
	})
	return count
}
