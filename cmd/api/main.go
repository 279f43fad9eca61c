package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadp "loan-ledger/internal/adapter/http"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/config"
	"loan-ledger/internal/infrastructure/cache"
	"loan-ledger/internal/infrastructure/db"
	"loan-ledger/internal/infrastructure/logger"
	"loan-ledger/internal/usecase/authz"
	"loan-ledger/internal/usecase/ledger"
	"loan-ledger/internal/usecase/registry"
	"loan-ledger/internal/usecase/workflow"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			return err
		}
	}

	rdb, err := cache.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		zl.Warn("redis disabled: idempotency and query cache are off")
	}

	tx := mysql.NewGormUoW(gdb)
	requests := mysql.NewLoanRequestRepository(gdb)

	led := ledger.NewUsecase(
		mysql.NewLoanRepository(gdb),
		mysql.NewRepaymentRepository(gdb),
		tx,
		ledger.WithOwnScope(cfg.Auth.BorrowerLoanScope == config.ScopeOwn),
	)
	reg := registry.NewUsecase(mysql.NewBorrowerRepository(gdb), requests)
	lo, hi := cfg.Workflow.Bounds()
	wf := workflow.NewUsecase(requests, tx, led, workflow.WithPolicy(workflow.Policy{
		MinAmount:     lo,
		MaxAmount:     hi,
		DefaultMarkup: cfg.Workflow.Markup(),
	}))

	if cfg.Auth.APIKey == "" {
		zl.Warn("API_KEY not set: admin operations are unreachable")
	}
	gate, err := authz.NewGateway(authz.Settings{
		APIKey:        cfg.Auth.APIKey,
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	}, reg)
	if err != nil {
		return err
	}

	e := httpadp.NewServer(httpadp.Deps{
		Config:   cfg,
		Log:      zl,
		Gate:     gate,
		Ledger:   led,
		Registry: reg,
		Workflow: wf,
		Redis:    rdb,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.App.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("db_driver", cfg.Database.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
