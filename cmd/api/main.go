package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shri22/vmurugan-gold-trading-sub000/internal/config"
	gateway "github.com/shri22/vmurugan-gold-trading-sub000/internal/gateways"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/handlers"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/queue"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/repository"
	"github.com/shri22/vmurugan-gold-trading-sub000/internal/services"
	xhttp "github.com/shri22/vmurugan-gold-trading-sub000/pkg/http"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/logger"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/pg"
	"github.com/shri22/vmurugan-gold-trading-sub000/pkg/redis"
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

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 15))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
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
	settlementRepo := repository.NewSettlementRepository(db)

	// services
	reconcileService := services.NewReconcileService(transactionRepo, customerRepo, schemeRepo, services.RateFloors{
		Gold:   config.Get().GoldRateFloor,
		Silver: config.Get().SilverRateFloor,
	})
	paymentService := services.NewPaymentService(gw, transactionRepo, reconcileService)
	settlementService := services.NewSettlementService(gw, settlementRepo)
	healthService := services.NewHealthService()

	// v1 handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(gw, q)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterPaymentRoutes(g, paymentHandler)
	handlers.RegisterWebhookRoutes(g, webhookHandler)
	handlers.RegisterSettlementRoutes(g, settlementHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
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
