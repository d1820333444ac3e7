package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/trongquochuydinh/semester-project/internal/auth"
	"github.com/trongquochuydinh/semester-project/internal/httpapi"
	"github.com/trongquochuydinh/semester-project/internal/obs"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("APP_COMMIT"))

	dsn := os.Getenv("APP_PG_DSN")
	if dsn == "" {
		log.Fatal("missing APP_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	secret := os.Getenv("APP_AUTH_SECRET")
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// OAuth state lives in Redis so a callback may land on any instance; a
	// single-instance dev setup without Redis falls back to process memory.
	var (
		states auth.StateStore
		rdb    *redis.Client
	)
	if addr := os.Getenv("APP_REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("APP_REDIS_PASSWORD")})
		states = auth.NewRedisStateStore(rdb, auth.DefaultStateTTL)
	} else {
		log.Print("APP_REDIS_ADDR not set, using in-memory oauth state store")
		states = auth.NewMemoryStateStore(auth.DefaultStateTTL)
	}

	provider := auth.NewGitHubClient(
		os.Getenv("APP_GITHUB_CLIENT_ID"),
		os.Getenv("APP_GITHUB_CLIENT_SECRET"),
		os.Getenv("APP_GITHUB_REDIRECT_URI"),
	)

	webBase := os.Getenv("APP_WEB_BASE_URL")
	if webBase == "" {
		webBase = "http://localhost:8000"
	}

	store := auth.NewPGStore(db)
	service, err := auth.NewService(store, states, tokens, provider,
		auth.WithRedirects(
			webBase+"/auth/oauth-success",
			webBase+"/auth/oauth-linked",
			webBase+"/",
		),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: db, Redis: rdb}
	api := httpapi.New(service, probe, version)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grpcHealth := httpapi.NewGRPCHealth(probe)
	grpcAddr := os.Getenv("APP_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = ":9090"
	}
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("grpc listen: %v", err)
	}
	go func() {
		if err := grpcHealth.Serve(lis); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()
	go grpcHealth.WatchReadiness(rootCtx, 10*time.Second)

	log.Printf("Starting auth-api %s on %s (grpc health on %s)", version, srv.Addr, grpcAddr)

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

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(ctx)
	grpcHealth.Stop()
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = db.Close()
	log.Println("Stopped")
}
