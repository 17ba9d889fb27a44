package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"sqlgate/internal/api"
	"sqlgate/internal/config"
	internaldb "sqlgate/internal/db"
	"sqlgate/internal/db/repository"
	"sqlgate/internal/jobs"
	"sqlgate/internal/middleware"
	"sqlgate/internal/policy"
	"sqlgate/internal/service"
)

const tokenTTL = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  concurrent read pool.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	roleRepo := repository.NewRoleRepo(writeDB)
	userRepo := repository.NewUserRepo(writeDB)
	privilegeRepo := repository.NewPrivilegeRepo(writeDB)
	maskingRepo := repository.NewMaskingRuleRepo(writeDB)
	exceptionRepo := repository.NewExceptionRepo(writeDB)
	requestRepo := repository.NewAccessRequestRepo(writeDB)
	auditRepo := repository.NewAuditRepo(writeDB)
	historyRepo := repository.NewQueryHistoryRepo(writeDB)

	engine := policy.NewEngine(
		policy.NewResolver(roleRepo, userRepo),
		policy.NewAggregator(privilegeRepo),
		policy.NewOverlay(exceptionRepo),
		maskingRepo,
		auditRepo,
		logger,
	)
	engine.Columns = internaldb.ColumnLookup(readDB)

	roleSvc := service.NewRoleService(roleRepo, auditRepo)
	privilegeSvc := service.NewPrivilegeService(privilegeRepo, roleRepo, auditRepo)
	maskingSvc := service.NewMaskingService(maskingRepo, auditRepo)
	exceptionSvc := service.NewExceptionService(exceptionRepo)
	requestSvc := service.NewAccessRequestService(requestRepo, roleRepo, auditRepo)
	userSvc := service.NewUserService(userRepo, auditRepo, cfg.JWTSecret, tokenTTL)
	querySvc := service.NewQueryService(engine, internaldb.NewSQLiteExecutor(readDB), historyRepo)
	auditSvc := service.NewAuditService(auditRepo)

	if n, err := privilegeSvc.SeedDefaults(ctx); err != nil {
		return err
	} else if n > 0 {
		logger.Info("seeded privilege catalog", "created", n)
	}

	sweeper := jobs.NewSweeper(exceptionSvc, cfg.ExceptionSweepSpec, logger)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	handler := api.NewHandler(
		roleSvc, privilegeSvc, maskingSvc, exceptionSvc,
		requestSvc, userSvc, querySvc, auditSvc, logger,
	)
	router := api.NewRouter(handler, api.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
