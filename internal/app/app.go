package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/yungbote/portfolio-backend/internal/clients/redis"
	"github.com/yungbote/portfolio-backend/internal/data/aggregates"
	"github.com/yungbote/portfolio-backend/internal/data/db"
	repos "github.com/yungbote/portfolio-backend/internal/data/repos/portfolio"
	userrepo "github.com/yungbote/portfolio-backend/internal/data/repos/user"
	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	apphttp "github.com/yungbote/portfolio-backend/internal/http"
	httpH "github.com/yungbote/portfolio-backend/internal/http/handlers"
	"github.com/yungbote/portfolio-backend/internal/observability"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
	"github.com/yungbote/portfolio-backend/internal/platform/locks"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
	"github.com/yungbote/portfolio-backend/internal/services"
)

type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *db.Service
	Store   *imagestore.LocalStore
	Redis   *goredis.Client
	Locker  locks.Locker
	Metrics *observability.Metrics

	Repos    Repos
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

type Repos struct {
	Projects repos.ProjectRepo
	Images   repos.ImageRepo
	Users    userrepo.UserRepo
}

type Services struct {
	Aggregate domainagg.ProjectAggregate
	Projects  services.ProjectService
	Sweeper   services.OrphanSweeper
	Importer  services.Importer
	Users     services.UserService
}

// New builds the application from the process environment.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := NewWithConfig(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// NewWithConfig wires every component against cfg. Partially built resources
// are released when any step fails.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (a *App, err error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a = &App{Log: log, Cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.LogMode,
	})
	a.Metrics = observability.Init(log)

	if a.DB, err = openDatabase(log, cfg); err != nil {
		return a, err
	}
	if err = a.DB.AutoMigrateAll(); err != nil {
		return a, fmt.Errorf("auto migrate: %w", err)
	}

	a.Store, err = imagestore.NewLocalStore(log, imagestore.Config{
		Root:          cfg.UploadDir,
		URLPrefix:     cfg.UploadURLPrefix,
		StoreTimeout:  cfg.StoreTimeout,
		DeleteTimeout: cfg.DeleteTimeout,
	})
	if err != nil {
		return a, err
	}

	if a.Locker, err = a.wireLocker(ctx); err != nil {
		return a, err
	}
	a.wireRepos()
	a.wireServices()
	a.wireServer()
	return a, nil
}

func openDatabase(log *logger.Logger, cfg Config) (*db.Service, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		return db.NewSQLiteService(log, cfg.SQLitePath)
	default:
		return db.NewPostgresService(log, cfg.Postgres)
	}
}

func (a *App) wireLocker(ctx context.Context) (locks.Locker, error) {
	if a.Cfg.RedisAddr == "" {
		a.Log.Info("Using in-process project locks")
		return locks.NewLocal(), nil
	}
	rdb, err := redisclient.Dial(ctx, a.Log, a.Cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	a.Redis = rdb
	return locks.NewRedis(a.Log, rdb, locks.RedisOptions{
		Prefix: "portfolio:lock:",
		TTL:    a.Cfg.RedisLockTTL,
	}), nil
}

func (a *App) wireRepos() {
	gdb := a.DB.DB()
	a.Repos = Repos{
		Projects: repos.NewProjectRepo(gdb, a.Log),
		Images:   repos.NewImageRepo(gdb, a.Log),
		Users:    userrepo.NewUserRepo(gdb, a.Log),
	}
}

func (a *App) wireServices() {
	gdb := a.DB.DB()
	agg := aggregates.NewProjectAggregate(aggregates.ProjectAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:       gdb,
			Log:      a.Log,
			Runner:   aggregates.NewGormTxRunner(gdb),
			Hooks:    aggregates.NewObservabilityHooks(a.Metrics),
			CASGuard: aggregates.NewCASGuard(gdb),
		},
		Projects:      a.Repos.Projects,
		Images:        a.Repos.Images,
		Store:         a.Store,
		Locker:        a.Locker,
		StoreTimeout:  a.Cfg.StoreTimeout,
		DeleteTimeout: a.Cfg.DeleteTimeout,
		AdoptWindow:   a.Cfg.SweepGrace,
	})
	projects := services.NewProjectService(a.Log, a.Repos.Projects, a.Repos.Images, agg)
	a.Services = Services{
		Aggregate: agg,
		Projects:  projects,
		Sweeper: services.NewOrphanSweeper(a.Log, a.Repos.Images, a.Store, a.Locker, a.Metrics, services.SweeperConfig{
			GracePeriod:   a.Cfg.SweepGrace,
			Concurrency:   a.Cfg.SweepConcurrency,
			DeleteTimeout: a.Cfg.DeleteTimeout,
		}),
		Importer: services.NewImporter(a.Log, projects, false),
		Users:    services.NewUserService(a.Log, aggregates.NewGormTxRunner(gdb), a.Repos.Users, a.Cfg.BcryptCost),
	}
}

func (a *App) wireServer() {
	a.Server = apphttp.NewServer(apphttp.RouterConfig{
		Log:                a.Log,
		Metrics:            a.Metrics,
		ServiceName:        a.Cfg.ServiceName,
		CORSOrigins:        a.Cfg.CORSOrigins,
		RateLimitPerSecond: a.Cfg.RateLimitPerSecond,
		RateLimitBurst:     a.Cfg.RateLimitBurst,
		UploadDir:          a.Store.Root(),
		UploadURLPrefix:    a.Store.URLPrefix(),
		HealthHandler:      httpH.NewHealthHandler(a.readinessChecks()),
		ProjectHandler:     httpH.NewProjectHandler(a.Log, a.Services.Projects, a.Cfg.UploadMaxBytes),
		UserHandler:        httpH.NewUserHandler(a.Log, a.Services.Users),
	})
}

func (a *App) readinessChecks() map[string]httpH.ReadinessCheck {
	checks := map[string]httpH.ReadinessCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"uploads": func(ctx context.Context) error {
			st, err := os.Stat(a.Store.Root())
			if err != nil {
				return err
			}
			if !st.IsDir() {
				return errors.New("upload root is not a directory")
			}
			return nil
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.Cfg.SweepSchedule != "" {
		sched, err := NewSweepScheduler(a.Log, a.Services.Sweeper, a.Cfg.SweepSchedule)
		if err != nil {
			return fmt.Errorf("sweep schedule: %w", err)
		}
		sched.Start(ctx)
	}
	a.Log.Info("Starting HTTP server", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(ctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownGrace)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownGrace)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("Redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	a.Log.Sync()
}
