package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-import/internal/api"
	"github.com/ignite/customer-import/internal/archive"
	"github.com/ignite/customer-import/internal/config"
	"github.com/ignite/customer-import/internal/ingest"
	"github.com/ignite/customer-import/internal/pkg/distlock"
	"github.com/ignite/customer-import/internal/pkg/logger"
	"github.com/ignite/customer-import/internal/repository/postgres"
)

func main() {
	log.Println("Customer Import Service (cmd/server)")

	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	configureLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database pool
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Printf("Database connected: ...@%s/...", extractHost(cfg.Database.URL))

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	// Optional Redis for the cross-instance singleton lock
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed: %v — falling back to PG advisory locks", err)
			redisClient = nil
		} else {
			log.Println("Redis connected (distributed locking enabled)")
		}
		pingCancel()
	} else {
		log.Println("Redis not configured — using PG advisory locks for the import singleton")
	}
	lock := distlock.NewLock(redisClient, db, "customer-import", 10*time.Minute)

	// Optional S3 archival of completed source files
	var archiver ingest.Archiver = archive.Noop{}
	if cfg.Archive.Enabled() {
		s3Archiver, err := archive.NewS3Archiver(ctx, cfg.Archive.S3Bucket, cfg.Archive.S3Region, cfg.Archive.AccessKey, cfg.Archive.SecretKey)
		if err != nil {
			log.Printf("Warning: S3 archiver init failed: %v — archival disabled", err)
		} else {
			archiver = s3Archiver
			log.Printf("Archival enabled: s3://%s (%s)", cfg.Archive.S3Bucket, cfg.Archive.S3Region)
		}
	}

	// Ingest wiring
	jobs := postgres.NewJobStore(db)
	customers := postgres.NewCustomerRepo(db)
	broker := ingest.NewBroker(jobs, customers)
	supervisor := ingest.NewSupervisor(jobs, customers, broker, archiver, lock, ingest.Settings{
		DefaultCSVPath: cfg.Import.CSVPath,
		ResumeOverlap:  cfg.Import.ResumeOverlap,
		ReadBuffer:     cfg.Import.HighWaterMark,
	})

	// Commit notifications keep snapshot recent-customer panels fresh
	// without polling.
	commitListener := postgres.NewCommitListener(cfg.Database.URL, broker.InvalidateRecent)
	if err := commitListener.Start(ctx); err != nil {
		log.Printf("Warning: commit listener failed to start: %v — snapshots fall back to cache TTL", err)
	} else {
		defer commitListener.Close()
	}

	// Boot-time reconciliation: resume a RUNNING job left by a crash.
	if err := supervisor.Resume(ctx); err != nil {
		log.Printf("Warning: boot-time resume check failed: %v", err)
	} else if supervisor.State() == ingest.StateRunning {
		log.Println("Resumed interrupted import job from persisted checkpoint")
	}

	handlers := api.NewHandlers(supervisor, broker, customers, jobs, api.Defaults{
		TotalRows:       cfg.Import.TotalRows,
		RecentLimit:     cfg.Import.RecentLimit,
		BatchSize:       cfg.Import.BatchSize,
		ProgressEveryMs: cfg.Import.ProgressEveryMs,
		Heartbeat:       cfg.SSE.HeartbeatInterval(),
	})
	healthChecker := api.NewHealthChecker(db, redisClient, supervisor)
	router := api.SetupRoutes(handlers, healthChecker)
	server := api.NewServer(cfg.Server.Addr(), router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	// Stop the worker first so its FAILED transition lands before the
	// event stream closes.
	supervisor.Shutdown(context.Background())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func configureLogger(cfg *config.Config) {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RedactPII != nil {
		logger.SetRedactPII(*cfg.Log.RedactPII)
	}
}

// extractHost pulls the host portion out of a database URL for safe
// logging (never the credentials).
func extractHost(dbURL string) string {
	at := strings.LastIndex(dbURL, "@")
	if at == -1 {
		return "local"
	}
	rest := dbURL[at+1:]
	if slash := strings.Index(rest, "/"); slash != -1 {
		return rest[:slash]
	}
	return rest
}
