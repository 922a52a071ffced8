// Package app wires configuration, storage, and the HTTP surface into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/config"
	"github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/http/api"
	"github.com/carvista/rcview/internal/memstore"
	"github.com/carvista/rcview/internal/ratelimit"
	"github.com/carvista/rcview/internal/search"
	"github.com/carvista/rcview/internal/settings"
	"github.com/carvista/rcview/internal/vahan"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the lookup server. A missing or unreachable database is
// not fatal: the server starts degraded on the in-memory store and the
// health breaker picks the database back up if it recovers.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	if jwtCfg.Secret == "" {
		return fmt.Errorf("jwt secret is required (set `jwt.secret` in config or %s)", config.EnvJWTSecret)
	}

	conn := openDatabase(configPath)
	health := db.NewHealth(conn, nil)
	mem := memstore.NewStore()
	settingsStore := settings.NewStore(conn, health, nil)
	recorder := audit.NewRecorder(conn, health, mem, nil)

	var redisLimiter *ratelimit.RedisLimiter
	if redisCfg := config.LoadRedisConfig(configPath); redisCfg.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		redisLimiter = ratelimit.NewRedisLimiter(client, redisCfg.Prefix)
		log.Infof("rate limiter using redis at %s", redisCfg.Addr)
	}
	limiter := ratelimit.NewLimiter(settingsStore, recorder, redisLimiter, nil)

	providerCfg := config.LoadProviderConfig(configPath)
	if providerCfg.APIKey == "" {
		log.Warn("no provider api key configured, lookups will fail until one is set")
	}
	svc := search.NewService(conn, health, mem, settingsStore, limiter, recorder, vahan.NewClient(providerCfg), nil)

	if conn != nil {
		if errSeed := seedBootstrapAdmin(ctx, conn, config.LoadBootstrapAdmin(configPath)); errSeed != nil {
			return errSeed
		}
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, conn, health, settingsStore, recorder, svc, jwtCfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Infof("rcview listening on :%d", port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// openDatabase resolves the DSN, opens the connection, and runs migrations.
// Any failure returns nil and the server runs degraded.
func openDatabase(configPath string) *gorm.DB {
	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		log.WithError(errDSN).Warn("no database configured, starting in degraded mode")
		return nil
	}
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		log.WithError(errOpen).Warn("database unreachable, starting in degraded mode")
		return nil
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		log.WithError(errMigrate).Warn("database migration failed, starting in degraded mode")
		return nil
	}
	return conn
}
