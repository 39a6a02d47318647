package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/config"
	"github.com/Freeeeeet/slot_swap/internal/controller"
	"github.com/Freeeeeet/slot_swap/internal/controller/handlers"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/Freeeeeet/slot_swap/internal/service"
)

const usage = `usage: swapctl [--env-file FILE] <command> [flags]

commands:
  migrate
`

func main() {
	flags := pflag.NewFlagSet("swapctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	envFile := flags.String("env-file", ".env", "dotenv file with configuration")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, flags.Args(), logger)
	stop()

	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, args []string, logger *zap.Logger) int {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDBDSN())
	if err != nil {
		logger.Error("Failed to parse DB_DSN", zap.Error(err))
		return 1
	}
	poolConfig.MaxConns = cfg.DBMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("Failed to create connection pool", zap.Error(err))
		return 1
	}
	defer pool.Close()

	if len(args) > 0 && args[0] == "migrate" {
		if err := migrate(ctx, pool, logger); err != nil {
			logger.Error("Migration failed", zap.Error(err))
			return 1
		}
		return 0
	}

	isoLevel, err := cfg.IsoLevel()
	if err != nil {
		logger.Error("Invalid isolation level", zap.Error(err))
		return 1
	}

	st := repository.NewStore(pool, isoLevel)
	registry := service.NewSlotRegistry()

	h := handlers.NewHandlers(
		service.NewUserService(st, logger),
		service.NewSlotService(st, registry, logger),
		service.NewSwapCoordinator(st, registry, logger),
		app.NewAuditor(st, cfg.AuditInterval, logger),
		cfg.ConflictRetry,
		os.Stdout,
		logger,
	)

	ctrl := controller.NewController(h, logger)
	ctrl.RegisterHandlers()

	if len(args) == 0 {
		printUsage(ctrl)
		return 2
	}

	if err := ctrl.Dispatch(ctx, args); err != nil {
		return reportError(err, ctrl, logger)
	}
	return 0
}

func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	version, err := migrator.Version(ctx)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(map[string]int64{"version": version})
}

// reportError пишет ошибку в stderr. Доменные ошибки завершаются с кодом 3.
func reportError(err error, ctrl *controller.Controller, logger *zap.Logger) int {
	code := handlers.ErrorCode(err)

	_ = json.NewEncoder(os.Stderr).Encode(map[string]string{
		"error": err.Error(),
		"code":  code,
	})

	switch {
	case code != "":
		return 3
	case errors.Is(err, controller.ErrUnknownCommand):
		printUsage(ctrl)
		return 2
	}

	logger.Error("Command failed", zap.Error(err))
	return 1
}

func printUsage(ctrl *controller.Controller) {
	fmt.Fprint(os.Stderr, usage)
	for _, command := range ctrl.Commands() {
		fmt.Fprintf(os.Stderr, "  %s\n", command)
	}
}
