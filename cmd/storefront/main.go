package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/customer"
	"storefront/internal/db"
	"storefront/internal/gateway/sslcommerz"
	httphandler "storefront/internal/handler/http"
	"storefront/internal/order"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	log.Info().Msg("Storefront starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	catalogService := catalog.NewService(catalog.NewRepository(dbConn.Pool))
	customerService := customer.NewService(customer.NewRepository(dbConn.Pool))
	cartService := cart.NewService(cart.NewRepository(dbConn.Pool), catalogService)

	gateway := sslcommerz.New(cfg.SSLCommerz)

	orderRepository := order.NewRepository(dbConn.Pool)
	orderService := order.NewService(orderRepository, gateway)
	checkoutService := checkout.NewService(cartService, orderRepository, customerService, gateway)

	handlers := httphandler.Handlers{
		Catalog:  httphandler.NewCatalogHandler(catalogService),
		Customer: httphandler.NewCustomerHandler(customerService, orderService, cfg.App.Secret),
		Cart:     httphandler.NewCartHandler(cartService),
		Checkout: httphandler.NewCheckoutHandler(checkoutService, customerService),
		Gateway:  httphandler.NewGatewayHandler(orderService),
	}

	router := httphandler.NewRouter(handlers, customerService, cfg.App.Secret)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
