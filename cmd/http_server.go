package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/auth"
	authPostgres "github.com/ThanhXT2002/api-insurance-sub001/internal/auth/postgres"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/cache"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/core/events"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/rbac"
	rbacPostgres "github.com/ThanhXT2002/api-insurance-sub001/internal/rbac/postgres"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/transport/rest"
	"github.com/ThanhXT2002/api-insurance-sub001/internal/user"
	userPostgres "github.com/ThanhXT2002/api-insurance-sub001/internal/user/postgres"
	"github.com/ThanhXT2002/api-insurance-sub001/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Cache  cache.Store
	Router *chi.Mux
	Logger *slog.Logger

	AuthHandler *auth.Handler
	UserHandler *user.Handler
	RBACHandler *rbac.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.Cache,
		deps.AuthHandler,
		deps.UserHandler,
		deps.RBACHandler,
		deps.Config.Server.AllowedOrigins,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.Cache.Close(); err != nil {
			deps.Logger.Error("cache close error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	cacheStore, err := cache.New(cache.Config{
		Driver:   config.Cache.Driver,
		Host:     config.Cache.Host,
		Port:     config.Cache.Port,
		Password: config.Cache.Password,
		DB:       config.Cache.DB,
		Prefix:   config.Cache.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	// The memory backend reclaims expired entries in the background; reads
	// treat them as misses either way.
	if sweeper, ok := cacheStore.(interface {
		StartCleanup(ctx context.Context, interval time.Duration)
	}); ok {
		sweeper.StartCleanup(context.Background(), time.Minute)
	}

	bus := events.NewEventBus(lg)

	identityStore := authPostgres.NewIdentityRepository(gormDB)
	snapshots := auth.NewSnapshotCache(cacheStore, config.Auth.SnapshotTTL)
	verifier := auth.NewJWTVerifier(config.Auth.JWTSecret)
	authService := auth.NewService(identityStore, verifier, snapshots, lg,
		config.Auth.StoreTimeout, config.Auth.DefaultRoleKey)
	authService.RegisterInvalidationHooks(bus)

	rbacService := rbac.NewService(rbacPostgres.NewRBACRepository(gormDB), bus, lg)
	userService := user.NewService(userPostgres.NewUserRepository(gormDB), bus, lg)

	return &Dependencies{
		Config:      config,
		Logger:      lg,
		DB:          db,
		Gorm:        gormDB,
		Cache:       cacheStore,
		Router:      chi.NewRouter(),
		AuthHandler: auth.NewHandler(authService),
		UserHandler: user.NewHandler(userService),
		RBACHandler: rbac.NewHandler(rbacService),
	}, nil
}

// initDB opens the pgx-backed connection pool used for health checks and
// raw access.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the existing pool so both share one set of
// connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
}
