package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/featureflags"
	"github.com/yourorg/audiometry/internal/handler"
	"github.com/yourorg/audiometry/internal/infrastructure/logger"
	"github.com/yourorg/audiometry/internal/observability/metrics"
	"github.com/yourorg/audiometry/internal/observability/tracing"
	"github.com/yourorg/audiometry/internal/reliability/retry"
	"github.com/yourorg/audiometry/internal/repository"
	"github.com/yourorg/audiometry/internal/security"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/security/auth"
	"github.com/yourorg/audiometry/internal/security/middleware"
	"github.com/yourorg/audiometry/internal/security/ratelimit"
	"github.com/yourorg/audiometry/internal/service"
	"github.com/yourorg/audiometry/internal/worker"
	"github.com/yourorg/audiometry/pkg/cache"
	"github.com/yourorg/audiometry/pkg/config"
	"github.com/yourorg/audiometry/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting hearing test server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "audiometry", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize the domain store
	var store domain.Store
	switch cfg.StoreDriver {
	case "postgres":
		// the database may come up after the server in compose setups
		pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect",
			func(ctx context.Context) (*database.ConnectionPool, error) {
				return database.NewConnectionPool(ctx, &database.Config{
					Host:     cfg.PostgresHost,
					Port:     cfg.PostgresPort,
					User:     cfg.PostgresUser,
					Password: cfg.PostgresPassword,
					Database: cfg.PostgresDatabase,
					SSLMode:  cfg.PostgresSSLMode,
				}, log)
			})
		if err != nil {
			log.Error("failed to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		pgStore, err := repository.NewPostgresStore(pool.DB(), log)
		if err != nil {
			log.Error("failed to initialize postgres store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := pgStore.SeedIfEmpty(); err != nil {
			log.Error("failed to seed postgres store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = pgStore
	default:
		memStore, err := repository.NewDemoStore(log)
		if err != nil {
			log.Error("failed to seed memory store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = memStore
	}
	log.Info("store initialized", slog.String("driver", cfg.StoreDriver))

	// 5. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "audiometry", cfg.TokenTTL)
	guard := security.NewGuard(store, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 6. Initialize services
	sessions := service.NewSessionService(store, tokenManager, log)
	searchCache := cache.New()

	// 7. Initialize handlers
	loginHandler := handler.NewLoginHandler(sessions, auditLogger, log)
	tenantsHandler := handler.NewTenantsHandler(store, log)
	groupsHandler := handler.NewGroupsHandler(store, guard, auditLogger, log)
	profilesHandler := handler.NewProfilesHandler(store, guard, auditLogger, log)
	searchHandler := handler.NewSearchHandler(store, guard, auditLogger, searchCache, log)
	profileDetailHandler := handler.NewProfileDetailHandler(store, guard, auditLogger, log)
	submitTestHandler := handler.NewSubmitTestHandler(store, guard, auditLogger, log)
	healthHandler := handler.NewHealthHandler()
	readyHandler := handler.NewReadyHandler(store, log)

	// 8. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /login", loginHandler)
	mux.Handle("GET /tenants", tenantsHandler)
	mux.Handle("GET /api/{tenantId}/groups", groupsHandler)
	mux.Handle("GET /api/{tenantId}/groups/{groupId}/profiles", profilesHandler)
	mux.Handle("GET /api/{tenantId}/profiles/search", searchHandler)
	mux.Handle("GET /api/{tenantId}/profiles/{profileId}", profileDetailHandler)
	mux.Handle("POST /api/{tenantId}/profiles/{profileId}/tests", submitTestHandler)
	mux.Handle("GET /api/health", healthHandler)
	mux.Handle("GET /readyz", readyHandler)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> JWT -> rate limit -> metrics -> CORS.
	// JWT runs before the rate limiter so authenticated callers are limited
	// by user ID rather than client address.
	rootHandler := withRequestID(
		middleware.JWTMiddleware(tokenManager, log)(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				metrics.HTTPMetricsMiddleware(handlerWithCORS),
			),
		),
		log,
	)

	// 9. Start the due-date reminder worker when the flag is on
	if featureflags.Enabled(featureflags.DueReminders) {
		reminderWorker := worker.NewReminderWorker(
			store,
			log,
			cfg.ReminderInterval,
			time.Duration(cfg.ReminderHorizonDays)*24*time.Hour,
		)
		go reminderWorker.Start(ctx)
	}

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop the reminder worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
