package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/app/service"
	"aptoscope/internal/infrastructure/binance"
	"aptoscope/internal/infrastructure/coingecko"
	"aptoscope/internal/infrastructure/configloader"
	"aptoscope/internal/infrastructure/indexer"
	"aptoscope/internal/infrastructure/restapi"
	"aptoscope/internal/pkg/logger"
	"aptoscope/internal/pkg/metrics"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"golang.org/x/time/rate"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	// Bridge zap into slog until the config-driven logger takes over below.
	slogHandler := zapslog.NewHandler(zapLogger.Core(), &zapslog.HandlerOptions{})
	slog.SetDefault(slog.New(slogHandler))

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yml"
	}
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.InitSlog(cfg.Logging.Level)
	logger.Info("Configuration loaded", "path", cfgPath)

	appLogger := logger.NewSlogAdapter()

	metrics.MustRegisterMetrics()

	indexerClient := indexer.NewClient(
		cfg.Indexer.GraphQLURL,
		time.Duration(cfg.Indexer.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.Indexer.ActivityPageSize,
		cfg.History.MaxAssetTypesPerFlowQuery,
	)
	logger.Info("Indexer client initialized", "url", cfg.Indexer.GraphQLURL)

	coinGeckoClient := coingecko.NewClient(
		cfg.CoinGecko.BaseURL,
		cfg.CoinGecko.APIKey,
		time.Duration(cfg.CoinGecko.RequestTimeoutMillis)*time.Millisecond,
		time.Duration(cfg.CoinGecko.CatalogueTTLMinutes)*time.Minute,
		zapLogger,
	)
	binanceClient := binance.NewClient(
		cfg.Binance.BaseURL,
		cfg.Binance.AnchorSymbol,
		time.Duration(cfg.Binance.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	logger.Info("Price provider chain initialized", "providers", []string{coinGeckoClient.Name(), binanceClient.Name()})

	providerLimiter := rate.NewLimiter(rate.Limit(cfg.PriceSvc.RateLimitPerSecond), cfg.PriceSvc.RateLimitBurst)
	priceService := service.NewPriceService(
		[]port.PriceProvider{coinGeckoClient, binanceClient},
		time.Duration(cfg.PriceSvc.CacheTTLMinutes)*time.Minute,
		providerLimiter,
		cfg.PriceSvc.MaxConcurrentAssets,
		time.Duration(cfg.PriceSvc.CallTimeoutMillis)*time.Millisecond,
		appLogger,
	)

	assetResolver := service.NewAssetResolver(coinGeckoClient, appLogger)
	flowLedger := service.NewFlowLedger(
		indexerClient,
		time.Duration(cfg.History.FlowFetchTimeoutMillis)*time.Millisecond,
		appLogger,
	)
	historyService := service.NewHistoryService(
		indexerClient,
		assetResolver,
		flowLedger,
		priceService,
		cfg,
		appLogger,
	)
	logger.Info("History service initialized", "flowsDisabled", cfg.History.DisableFlows)

	historyHandler := restapi.NewHistoryHandler(historyService, appLogger)
	router := restapi.SetupRouter(historyHandler, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exiting")
}
