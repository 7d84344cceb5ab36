// File: fixhub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixhub/cache"
	"fixhub/config"
	"fixhub/cron"
	"fixhub/handlers"
	"fixhub/middleware"
	"fixhub/routes"
	"fixhub/services/booking"
	"fixhub/services/payment"
	"fixhub/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitSessionCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// Shared client view of marketplace entities. Constructed here, not as a
	// package singleton, so lifecycle and test isolation stay explicit.
	store := cache.NewStore(logger, 5*time.Minute)

	api := booking.NewAPIClient(
		config.AppConfig.MarketplaceAPIURL,
		config.AppConfig.MarketplaceAPIKey,
		logger,
	)
	gateway := payment.NewClient(
		config.AppConfig.PaymentGatewayURL,
		config.AppConfig.PaymentGatewayKey,
		logger,
	)
	mutator := booking.NewMutator(store, api, logger)

	// Deferred reconciliation of verification timeouts.
	reconcileClient := cron.NewReconcileClient()
	cron.InitReconcileWorker(gateway, mutator)

	pollCfg := booking.PollConfig{
		Interval:    time.Duration(config.AppConfig.PaymentPollIntervalSeconds) * time.Second,
		MaxAttempts: config.AppConfig.PaymentPollMaxAttempts,
		Window:      time.Duration(config.AppConfig.PaymentPollWindowSeconds) * time.Second,
	}
	newRun := func() *booking.Orchestrator {
		return booking.NewOrchestrator(mutator, gateway, pollCfg, logger).
			WithTimeoutHook(func(transactionID, bookingID string) {
				if err := cron.EnqueueReconcile(reconcileClient, transactionID, bookingID); err != nil {
					logger.Sugar().Warnf("main: failed to enqueue reconciliation: %v", err)
				}
			})
	}

	sessions := booking.NewSessionService(utils.GetSessionCacheClient(), logger, newRun)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Flow:     handlers.NewBookingFlowHandler(sessions, logger),
		Payment:  handlers.NewPaymentHandler(sessions, logger),
		Query:    handlers.NewQueryHandler(store, api, logger),
		Provider: handlers.NewProviderHandler(mutator, logger),
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
