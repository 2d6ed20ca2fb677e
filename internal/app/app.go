// Package app is the lifecycle controller: one struct holding every
// collaborator, initialized lazily on the first request that needs it.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fiber-cms-pg/internal/auth"
	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/db"
	"fiber-cms-pg/internal/esx"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/mqx"
	"fiber-cms-pg/internal/redisx"
	"fiber-cms-pg/internal/storage"
	"fiber-cms-pg/internal/store"
	"fiber-cms-pg/pkg"
)

var appLogger = logx.GetScope("app")

// App wires config to collaborators. Construction is cheap; the first
// Init call opens the database, runs migrations and builds the rest.
// The mutex makes concurrent first requests share one initialization;
// a failed attempt is rolled back and retried on the next request.
type App struct {
	Cfg      *config.Config
	CfgStore *config.Store

	mu    sync.Mutex
	ready bool

	database *db.DB
	store    *store.Store
	auth     *auth.Service
	storage  *storage.Client
	redis    *redisx.Client
	mq       mqx.Publisher
	es       *esx.Client

	closers []func()
}

func New(cfg *config.Config, cfgStore *config.Store) *App {
	return &App{Cfg: cfg, CfgStore: cfgStore}
}

// Init builds every collaborator once. Order matters: database and
// migrations first, then storage and auth, then the optional
// redis/mq/es attachments, which log and stay nil on failure. A failed
// attempt tears down whatever it opened so a later request can try
// again, a transient outage at startup does not wedge the process.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	if err := a.initLocked(ctx); err != nil {
		a.closeLocked()
		a.database = nil
		a.store = nil
		a.auth = nil
		a.storage = nil
		a.redis = nil
		a.mq = nil
		a.es = nil
		return err
	}
	a.ready = true
	return nil
}

func (a *App) initLocked(ctx context.Context) error {
	start := time.Now()
	d, dbCloser, err := db.Open(a.Cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, dbCloser)
	a.database = d

	if a.Cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, d); err != nil {
			return err
		}
	}
	a.store = store.New(d)
	a.auth = auth.NewService(a.Cfg, a.store)

	if a.Cfg.Storage.Endpoint != "" {
		client, err := storage.New(storage.Config{
			Endpoint:        a.Cfg.Storage.Endpoint,
			Bucket:          a.Cfg.Storage.Bucket,
			AccessKeyID:     a.Cfg.Storage.AccessKeyID,
			SecretAccessKey: a.Cfg.Storage.SecretAccessKey,
			Region:          a.Cfg.Storage.Region,
			PublicURL:       a.Cfg.Storage.PublicURL,
			PathPrefix:      a.Cfg.Storage.PathPrefix,
			URLStyle:        a.Cfg.Storage.URLStyle,
		})
		if err != nil {
			return err
		}
		a.storage = client
	}

	// Optional attachments. The CMS works without any of them.
	if rdb, closer, err := redisx.Open(a.Cfg); err != nil {
		appLogger.Sugar().Warnf("redis unavailable: %v", err)
	} else if rdb != nil {
		a.redis = rdb
		a.closers = append(a.closers, closer)
	}

	if a.Cfg.MQ.URL != "" {
		pub, err := mqx.NewRabbitPublisher(a.Cfg.MQ.URL, a.Cfg.MQ.Exchange)
		if err != nil {
			appLogger.Sugar().Warnf("rabbitmq unavailable: %v", err)
		} else {
			a.mq = pub
			a.closers = append(a.closers, func() { _ = pub.Close() })
		}
	}

	if es, closer, err := esx.Open(a.Cfg); err != nil {
		appLogger.Sugar().Warnf("elasticsearch unavailable: %v", err)
	} else if es != nil {
		a.es = es
		a.closers = append(a.closers, closer)
	}

	appLogger.Info("cms initialized", zap.String("took", pkg.FormatDuration(time.Since(start))))
	return nil
}

// Ensure is a middleware that triggers Init on the first request
// through it and rejects requests while the CMS cannot come up.
func (a *App) Ensure() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Init(c.Context()); err != nil {
			appLogger.Sugar().Errorf("init failed: %v", err)
			return kit.NewAPIError(fiber.StatusServiceUnavailable, "E_INTERNAL", "CMS initialization failed", nil)
		}
		return c.Next()
	}
}

// Close tears down collaborators in reverse construction order.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
	a.ready = false
}

func (a *App) closeLocked() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) DB() *db.DB               { return a.database }
func (a *App) Store() *store.Store      { return a.store }
func (a *App) Auth() *auth.Service      { return a.auth }
func (a *App) Storage() *storage.Client { return a.storage }
func (a *App) Redis() *redisx.Client    { return a.redis }
func (a *App) MQ() mqx.Publisher        { return a.mq }
func (a *App) ES() *esx.Client          { return a.es }
