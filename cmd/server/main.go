package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"ahloulbait/internal/api"
	"ahloulbait/internal/audit"
	"ahloulbait/internal/auth"
	"ahloulbait/internal/chat"
	"ahloulbait/internal/config"
	"ahloulbait/internal/db"
	"ahloulbait/internal/notify"
	"ahloulbait/internal/ratelimit"
	"ahloulbait/internal/roles"
	"ahloulbait/internal/service"
	"ahloulbait/internal/store"
	"ahloulbait/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	sqdb, err := db.OpenSQLite(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer sqdb.Close()
	if err := db.ApplyMigrationFile(sqdb, "migrations/001_init.sql"); err != nil {
		log.Fatalf("migration: %v", err)
	}

	st := store.New(sqdb)
	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		hash, err := auth.HashPassword(cfg.BootstrapAdminPassword)
		if err != nil {
			log.Fatalf("bootstrap admin hash: %v", err)
		}
		if err := st.EnsureAdmin(context.Background(), cfg.BootstrapAdminEmail, hash); err != nil {
			log.Fatalf("bootstrap admin create: %v", err)
		}
	}

	dir, err := roles.NewDirectory(cfg)
	if err != nil {
		log.Fatalf("role directory: %v", err)
	}
	guard := roles.NewGuard(st, dir)
	limiter := ratelimit.New(st, ratelimit.DefaultPolicies())
	recorder := audit.NewRecorder(st, cfg.AuditHashSalt)
	sender := notify.NewSender(cfg)
	chatClient := chat.NewClient(cfg)

	svc := service.New(cfg, st, limiter, guard, recorder, sender, chatClient)
	r := api.NewRouter(cfg, svc, st)

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	v := version.Current()
	log.Printf("ahloulbait %s (%s) listening on %s", v.Version, v.Commit, cfg.ListenAddr)
	if err := hsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
