package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-offers/internal/app"
	"github.com/noah-isme/backend-offers/internal/auth"
	"github.com/noah-isme/backend-offers/internal/cart"
	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/config"
	"github.com/noah-isme/backend-offers/internal/health"
	"github.com/noah-isme/backend-offers/internal/item"
	"github.com/noah-isme/backend-offers/internal/lock"
	"github.com/noah-isme/backend-offers/internal/obs"
	"github.com/noah-isme/backend-offers/internal/queue"
	"github.com/noah-isme/backend-offers/internal/ratelimit"
	"github.com/noah-isme/backend-offers/internal/rules"
	"github.com/noah-isme/backend-offers/internal/security"
	"github.com/noah-isme/backend-offers/internal/seed"
	"github.com/noah-isme/backend-offers/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("service", "offers-api").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	shutdownTracing := app.InitTracing(context.Background(), cfg, "offers-api", logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := app.Open(ctx, cfg, "offers-api", logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	queries := deps.Queries()
	if cfg.SeedOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		summary, err := seed.Run(ctx, queries, seed.Options{})
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("seed")
		}
		logger.Info().Int("items", summary.Items).Int("rules", summary.Rules).Msg("seeded")
	}

	authService, err := auth.NewService(auth.Config{
		Username:       cfg.AdminUsername,
		PasswordHash:   cfg.AdminPasswordHash,
		Secret:         adminSecret(cfg, logger),
		AccessTokenTTL: cfg.AdminTokenTTL,
		Issuer:         cfg.AdminJWTIssuer,
		Audience:       cfg.AdminJWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMiddleware := auth.Middleware{Service: authService}
	loginLimit, err := ratelimit.NewFixedWindow(deps.Redis, "offers:login", cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login rate limit")
	}

	itemService := item.NewService(item.ServiceConfig{
		Queries: queries,
		Cache:   item.NewCache(deps.Redis, cfg.ItemCacheTTL),
		Logger:  logger,
	})
	itemHandler := item.NewHandler(item.HandlerConfig{Service: itemService})

	userHandler := &user.Handler{Service: user.NewService(queries)}

	applier := rules.NewApplier(rules.ApplierConfig{
		Tx:       deps.Store,
		Locker:   &lock.Locker{R: deps.Redis},
		LockTTL:  cfg.CartLockTTL,
		LockWait: cfg.CartLockWait,
		Logger:   logger,
	})
	rulesHandler := &rules.Handler{Service: rules.NewService(queries), Applier: applier}

	var enqueuer cart.Enqueuer
	if cfg.RepriceAsync {
		redisOpt, err := app.TaskRedisOpt(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("task queue")
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		enqueuer = queue.Enqueuer{Client: client}
	}
	cartHandler := &cart.Handler{Svc: cart.NewService(cart.ServiceConfig{
		Queries:  queries,
		Enqueuer: enqueuer,
		Logger:   logger,
	})}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	applyLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: deps.Redis},
		Config: ratelimit.Config{
			Scope:  "apply",
			Key:    ratelimit.ClientAndCartKey,
			Window: cfg.ApplyRateLimitWindow,
			Max:    cfg.ApplyRateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("apply rate limit unavailable")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics, Skip: []string{"/metrics", "/health/live", "/health/ready"}}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production", TrustProxy: envBool("HTTP_TRUST_PROXY", false)}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.BodyLimit{Max: cfg.RequestBodyMaxBytes, JSONOnly: true}.Middleware)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")))
	}

	healthHandler := health.Handler{
		Checker:      app.ReadinessChecker{DB: deps.Pool, Redis: deps.Redis},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/admin", func(a chi.Router) {
			a.With(loginLimit).Post("/login", authHandler.Login)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/users", func(u chi.Router) {
			u.Get("/", userHandler.List)
			u.Get("/{id}", userHandler.Get)
			u.With(idem.Middleware).Post("/", userHandler.Create)
		})

		v.Route("/items", func(i chi.Router) {
			i.Get("/", itemHandler.List)
			i.Get("/{id}", itemHandler.Get)
			i.With(authMiddleware.RequireAuth).Post("/", itemHandler.Create)
		})

		v.Route("/carts", func(c chi.Router) {
			c.Get("/", cartHandler.List)
			c.Get("/{id}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
			})
			c.With(applyLimit.Middleware, idem.Middleware).Post("/{id}/apply", rulesHandler.ApplyCart)
		})

		v.Route("/rules", func(rr chi.Router) {
			rr.Get("/", rulesHandler.List)
			rr.Get("/{id}", rulesHandler.Get)
			rr.With(applyLimit.Middleware, idem.Middleware).Post("/apply", rulesHandler.ApplyQuery)
			rr.Group(func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAuth)
				admin.Post("/", rulesHandler.Create)
				admin.Put("/{id}", rulesHandler.Update)
				admin.Delete("/{id}", rulesHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited unexpectedly")
		}
	}

	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// adminSecret falls back to a per-process secret outside production so local
// runs work without configuration. Tokens do not survive a restart.
func adminSecret(cfg *config.Config, logger zerolog.Logger) string {
	if cfg.AdminJWTSecret != "" {
		return cfg.AdminJWTSecret
	}
	logger.Warn().Msg("ADMIN_JWT_SECRET not set, using an ephemeral secret")
	return "dev-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
