package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/api"
	"github.com/charlesng35/chatrelay/internal/app"
	"github.com/charlesng35/chatrelay/internal/app/maintenance"
	iauth "github.com/charlesng35/chatrelay/internal/auth"
	"github.com/charlesng35/chatrelay/internal/cache"
	"github.com/charlesng35/chatrelay/internal/database"
	"github.com/charlesng35/chatrelay/internal/middleware"
	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/monitoring/checks"
	"github.com/charlesng35/chatrelay/internal/presence"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/internal/services"
	"github.com/charlesng35/chatrelay/pkg/logger"
)

const maintenanceMaxAge = 48 * time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *cache.RedisClient
	Store    cache.Store
	Hub      *realtime.Hub
	Socket   *realtime.Server
	Archiver *services.Archiver
	Mirror   *presence.Mirror
	Monitor  *monitoring.Module
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, the realtime hub
// and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store = cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Store = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	var jwtSvc *iauth.JWTService
	if strings.TrimSpace(cfg.Auth.JWT.Secret) != "" {
		jwtSvc, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise jwt service: %w", err)
		}
	}
	identity, err := iauth.NewIdentityResolver(cfg.Realtime.AuthMode(), jwtSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise identity resolver: %w", err)
	}

	rooms, err := services.NewRoomService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise room service: %w", err)
	}

	hubOpts := []realtime.Option{realtime.WithEnforcedAuthor(cfg.Realtime.EnforceAuthor)}

	var messages *services.MessageService
	if cfg.Chat.Archive.Enabled {
		if messages, err = services.NewMessageService(stack.DB); err != nil {
			return nil, fmt.Errorf("initialise message service: %w", err)
		}
		if stack.Archiver, err = services.NewArchiver(messages, cfg.Chat.Archive.Buffer); err != nil {
			return nil, fmt.Errorf("initialise archiver: %w", err)
		}
		hubOpts = append(hubOpts, realtime.WithObserver(stack.Archiver))
	}

	if cfg.Presence.Enabled {
		if stack.Mirror, err = presence.NewMirror(stack.Store, cfg.Presence.TTL, cfg.Presence.QueueSize); err != nil {
			return nil, fmt.Errorf("initialise presence mirror: %w", err)
		}
		hubOpts = append(hubOpts, realtime.WithObserver(stack.Mirror))
	}

	stack.Hub = realtime.NewHub(hubOpts...)
	stack.Socket = realtime.NewServer(stack.Hub, cfg.SocketConfig())

	stack.Monitor = monitoring.NewModule(monitoring.Options{ProbeTimeout: cfg.Monitoring.Health.ProbeTimeout})
	registerHealthChecks(stack, cfg)

	stack.Cleaner = newCleaner(stack, cfg, messages)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	deps := api.Dependencies{
		Config:    cfg,
		Hub:       stack.Hub,
		Socket:    stack.Socket,
		Identity:  identity,
		Rooms:     rooms,
		Messages:  messages,
		Monitor:   stack.Monitor,
		RateStore: middleware.NewCacheRateStore(stack.Store),
	}
	if stack.Mirror != nil {
		deps.Mirror = stack.Mirror
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	log.Info("runtime ready",
		zap.String("identity_mode", identity.Mode()),
		zap.Bool("archive", stack.Archiver != nil),
		zap.Bool("presence_mirror", stack.Mirror != nil),
		zap.Strings("maintenance_jobs", stack.Cleaner.Jobs()),
	)

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitor.Health()
	health.RegisterLiveness(checks.Realtime(stack.Hub))
	health.RegisterReadiness(checks.Database(stack.DB, cfg.Monitoring.Health.ProbeTimeout))
	health.RegisterReadiness(checks.Maintenance(stack.Monitor, maintenanceMaxAge))

	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	health.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout))
}

func newCleaner(stack *runtimeStack, cfg *app.Config, messages *services.MessageService) *maintenance.Cleaner {
	opts := []maintenance.Option{maintenance.WithRecorder(stack.Monitor)}

	if messages != nil {
		opts = append(opts, maintenance.WithMessagePruning(messages, cfg.Chat.Archive.RetentionDays, cfg.Chat.Archive.PruneSchedule))
	}
	if stack.Mirror != nil {
		opts = append(opts, maintenance.WithPresenceRefresh(stack.Mirror, stack.Hub, cfg.Presence.RefreshSchedule))
	}
	if purger, ok := stack.Store.(maintenance.CachePurger); ok {
		opts = append(opts, maintenance.WithCachePurge(purger, ""))
	}

	return maintenance.NewCleaner(opts...)
}

// Shutdown closes every connection, drains the asynchronous observers, runs
// a final maintenance pass and releases stores. Errors are aggregated.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error

	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Socket != nil && !s.Socket.Wait(waitTimeout(ctx)) {
		errs = multierr.Append(errs, errors.New("socket writers did not exit before the deadline"))
	}

	if s.Archiver != nil {
		s.Archiver.Close()
	}
	if s.Mirror != nil {
		s.Mirror.Close()
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		errs = multierr.Append(errs, s.Cleaner.RunOnce(ctx))
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
	}

	return errs
}

func waitTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
		return 0
	}
	return 5 * time.Second
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Chat.Rooms()...); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
