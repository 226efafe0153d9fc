package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"clinic.tj/internal/auth"
	"clinic.tj/internal/config"
	"clinic.tj/internal/httpapi"
	"clinic.tj/internal/medical"
	"clinic.tj/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Open the database when a DSN is configured; otherwise fall back to
	// in-memory stores so the service still runs for local development.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		authStore    auth.Store
		revokedStore auth.RevocationStore
		medicalStore medical.Store
	)
	if db != nil {
		pg := auth.NewPGStore(db)
		authStore = pg
		revokedStore = pg.RevokedTokens()
		medicalStore = medical.NewPGStore(db)
	} else {
		log.Println("no CLINIC_PG_DSN set, using in-memory stores")
		mem := auth.NewMemoryStore()
		authStore = mem
		revokedStore = mem.RevokedTokens()
		medicalStore = medical.NewMemoryStore()
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, revokedStore,
		auth.WithSigningMethod(cfg.JWTAlgorithm),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(authStore, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	medicalSvc, err := medical.NewService(medicalStore)
	if err != nil {
		log.Fatalf("medical service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := authSvc.EnsureBuiltins(ctx); err != nil {
		log.Fatalf("ensure builtin permissions: %v", err)
	}

	// Expired denylist entries are garbage once their refresh window has
	// passed; prune them periodically.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := authSvc.PruneRevoked(ctx); err != nil {
					log.Printf("prune revoked tokens: %v", err)
				} else if n > 0 {
					log.Printf("pruned %d revoked tokens", n)
				}
			}
		}
	}()

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, medicalSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting clinic-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
