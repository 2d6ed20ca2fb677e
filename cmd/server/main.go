// Package main is the entry point for the embeddable CMS server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fiber-cms-pg/internal/app"
	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/db"
	"fiber-cms-pg/internal/httpx"
	"fiber-cms-pg/internal/httpx/kit"
	"fiber-cms-pg/internal/logx"
	"fiber-cms-pg/internal/server"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load config (env first; optional Apollo override)
	cfg, store, apClose, err := config.Load()
	if err != nil {
		panic(err)
	}
	if apClose != nil {
		defer apClose()
	}

	// Init global logger first
	logx.Init(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logx.Sync() }()

	mainLogger := logx.GetScope("main")
	mainLogger.Info("config loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.Server.Addr),
		zap.String("base_path", cfg.CMS.BasePath),
		zap.String("log.level", cfg.Log.Level),
		zap.String("log.format", cfg.Log.Format),
	)

	// The database, storage client and collaborators are created on the
	// first API request, not here. A misconfigured database therefore
	// does not stop the process from serving the setup status endpoint.
	a := app.New(cfg, store)
	defer a.Close()

	fapp := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler()})
	httpx.RegisterCommonMiddlewares(fapp)
	httpx.Mount(fapp, a)

	// Validators: rollback strategy for invalid config
	store.AddValidator(func(newCfg *config.Config, changed map[string]bool) error {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			if newCfg.PG.MaxIdleConns > newCfg.PG.MaxOpenConns {
				return fmt.Errorf("PG_MAX_IDLE cannot exceed PG_MAX_OPEN")
			}
		}
		return nil
	})

	store.Watch(func(newCfg *config.Config, changed map[string]bool) {
		if changed["pg.max_open"] || changed["pg.max_idle"] {
			db.UpdatePool(newCfg.PG.MaxOpenConns, newCfg.PG.MaxIdleConns)
			mainLogger.Info("db pool updated",
				zap.Int("max_open", newCfg.PG.MaxOpenConns),
				zap.Int("max_idle", newCfg.PG.MaxIdleConns),
			)
		}
		if changed["pg.url"] {
			mainLogger.Warn("pg.url changed; restart required to reconnect")
		}
		if changed["server.addr"] {
			mainLogger.Warn("server.addr changed; restart required to take effect",
				zap.String("addr", newCfg.Server.Addr),
			)
		}
		if changed["log.level"] || changed["log.format"] {
			logx.Init(newCfg.Log.Level, newCfg.Log.Format)
			mainLogger.Info("logger reconfigured",
				zap.String("level", newCfg.Log.Level),
				zap.String("format", newCfg.Log.Format),
			)
		}
	})

	// Graceful shutdown
	go func() {
		ln, err := server.GetListener(cfg.Server.Addr)
		if err != nil {
			mainLogger.Sugar().Errorf("listener error: %v", err)
			return
		}
		if err := fapp.Listener(ln); err != nil {
			mainLogger.Sugar().Infof("fiber exit: %v", err)
		}
	}()
	mainLogger.Sugar().Infof("server started on %s", cfg.Server.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	mainLogger.Sugar().Info("shutting down...")
	_ = fapp.Shutdown()
}
