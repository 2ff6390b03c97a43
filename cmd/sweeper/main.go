package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/config"
	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	gw, err := gateway.NewClient(&gateway.Config{
		BaseURL:  config.Get().GatewayBaseURL,
		Timeout:  config.Get().GatewayTimeout,
		MaxConns: config.Get().GatewayMaxConns,
		Gold: gateway.Merchant{
			MerchantID: config.Get().GoldMerchantID,
			APIKey:     config.Get().GoldMerchantAPIKey,
			Salt:       config.Get().GoldMerchantSalt,
			Name:       "gold",
		},
		Silver: gateway.Merchant{
			MerchantID: config.Get().SilverMerchantID,
			APIKey:     config.Get().SilverMerchantAPIKey,
			Salt:       config.Get().SilverMerchantSalt,
			Name:       "silver",
		},
	})
	if err != nil {
		logger.Error("failed creating gateway client", "error", err)
		return
	}

	transactionRepo := repository.NewTransactionRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)

	reconcileService := services.NewReconcileService(transactionRepo, customerRepo, schemeRepo, services.RateFloors{
		Gold:   config.Get().GoldRateFloor,
		Silver: config.Get().SilverRateFloor,
	})
	sweeper := services.NewSweeperService(
		transactionRepo,
		gw,
		reconcileService,
		config.Get().SweeperMaxAge,
		config.Get().SweeperBatchSize,
	)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interval := config.Get().SweeperInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("sweeper started", "interval", interval, "max_age", config.Get().SweeperMaxAge)

	runSweep(ctx, sweeper)
	for {
		select {
		case <-ticker.C:
			runSweep(ctx, sweeper)
		case <-c:
			logger.Info("sweeper stopping")
			cancel()
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper *services.SweeperService) {
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		return
	}
	logger.Info("sweep finished",
		"checked", report.Checked,
		"credited", report.Credited,
		"expired", report.Expired,
		"still_pending", report.StillPending,
		"skipped", report.Skipped)
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
