package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"magasin/internal/alerte"
	"magasin/internal/commande"
	"magasin/internal/config"
	"magasin/internal/demande"
	"magasin/internal/demandeexcep"
	"magasin/internal/infrastructure/logger"
	"magasin/internal/infrastructure/mysql"
	"magasin/internal/infrastructure/redis"
	"magasin/internal/notification"
	"magasin/internal/server"
	"magasin/internal/stock"
	"magasin/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	redisClient, err := redis.NewClient(cfg.Redis.Addr)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}

	tokenSvc := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	ledger := stock.NewLedger(zapLogger)

	notifCtrl, notifSvc := notification.NewModule(db, cfg, zapLogger)
	alerteCtrl, alerteSvc := alerte.NewModule(db, notifSvc, notifSvc, zapLogger)
	demandeCtrl := demande.NewModule(db, cfg, ledger, alerteSvc, notifSvc, notifSvc, zapLogger)
	excepCtrl := demandeexcep.NewModule(db, cfg, notifSvc, notifSvc, zapLogger)
	commandeCtrl := commande.NewModule(db, cfg, ledger, alerteSvc, notifSvc, notifSvc, zapLogger)

	router := server.NewRouter(server.RouterDeps{
		Demandes:      demandeCtrl,
		Exceptions:    excepCtrl,
		Commandes:     commandeCtrl,
		Alertes:       alerteCtrl,
		Notifications: notifCtrl,
		TokenSvc:      tokenSvc,
		RedisClient:   redisClient,
		Config:        cfg,
	})

	srv := server.New(cfg.Server, router, zapLogger)

	// Periodic sweep: catches up on alerts and notifications whose post-commit
	// dispatch failed, and repairs any status drift.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.Reconcile.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := alerteSvc.Reconcile(sweepCtx); err != nil {
					zapLogger.Error("reconcile sweep failed", zap.Error(err))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
