package serverbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/shootout-server/internal/adminapi"
	"github.com/park285/shootout-server/internal/config"
	"github.com/park285/shootout-server/internal/livestate"
	"github.com/park285/shootout-server/internal/lobby"
	"github.com/park285/shootout-server/internal/msgcat"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/park285/shootout-server/internal/storage"
	"github.com/park285/shootout-server/internal/turntimer"
	"github.com/park285/shootout-server/internal/wsserver"
	"go.uber.org/zap"
)

type Deps struct {
	Store     storage.Store
	Live      *livestate.Store // nil without REDIS_URL
	Scheduler *turntimer.Scheduler
	Catalog   *msgcat.Catalog
	Registry  *shootout.Registry
	Lobby     *lobby.Manager
	WS        *wsserver.Server
	Admin     *adminapi.Server
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	var checks []adminapi.Check

	// Store (Postgres optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := storage.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		d.Store = pg
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		checks = append(checks, adminapi.Check{Name: "postgres", Ping: pg.Ping})
	} else {
		logger.Warn("storage_in_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Store = storage.NewMemory()
	}
	resetCtx, cancelReset := context.WithTimeout(context.Background(), 5*time.Second)
	n, err := d.Store.ResetPresence(resetCtx)
	cancelReset()
	if err != nil {
		logger.Warn("presence_reset_error", zap.Error(err))
	} else {
		logger.Info("presence_reset", zap.Int64("players", n))
	}

	// Live snapshots (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		live, err := livestate.New(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init livestate: %w", err)
		}
		d.Live = live
		checks = append(checks, adminapi.Check{Name: "redis", Ping: live.Ping})
	}

	d.Scheduler, err = turntimer.New(cfg.SchedulerWorkers)
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	d.Catalog, err = msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	hub := wsserver.NewHub(logger.Named("hub"))
	opts := shootout.Options{
		Gateway:            d.Store,
		Scheduler:          d.Scheduler,
		Texts:              d.Catalog,
		Broadcaster:        hub,
		Logger:             logger.Named("shootout"),
		TurnTimeout:        cfg.TurnTimeout,
		FirstMoveDelay:     cfg.FirstMoveDelay,
		RematchPromptDelay: cfg.RematchPromptDelay,
		WinBonus:           cfg.WinBonusPoints,
	}
	if d.Live != nil {
		opts.Observer = d.Live
	}
	d.Registry = shootout.NewRegistry(opts, cfg.MaxConcurrentMatches)
	d.Lobby = lobby.NewManager(cfg.ChallengeTTL)

	d.WS = wsserver.New(wsserver.Config{OriginPatterns: cfg.AllowedOrigins}, wsserver.Deps{
		Hub:      hub,
		Registry: d.Registry,
		Lobby:    d.Lobby,
		Store:    d.Store,
		Texts:    d.Catalog,
		Logger:   logger.Named("ws"),
	})
	if err := d.WS.StartSweeper(d.Scheduler); err != nil {
		return nil, fmt.Errorf("start lobby sweeper: %w", err)
	}

	adminOpts := adminapi.Options{
		Records:  d.Store,
		Sessions: d.Registry,
		Checks:   checks,
		Logger:   logger.Named("admin"),
	}
	if d.Live != nil {
		adminOpts.Live = d.Live
	}
	d.Admin = adminapi.New(adminOpts)

	ok = true
	return d, nil
}

// Close releases the scheduler and both stores. Servers are shut down by
// the caller first.
func (d *Deps) Close() error {
	var errs []error
	if d.Scheduler != nil {
		errs = append(errs, d.Scheduler.Shutdown())
	}
	if d.Live != nil {
		errs = append(errs, d.Live.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	return errors.Join(errs...)
}
