package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lcu1903/ProjectThoiTrang/internal/config"
	"github.com/lcu1903/ProjectThoiTrang/internal/es"
	"github.com/lcu1903/ProjectThoiTrang/internal/handlers"
	"github.com/lcu1903/ProjectThoiTrang/internal/logging"
	loggingmw "github.com/lcu1903/ProjectThoiTrang/internal/middleware/logging"
	"github.com/lcu1903/ProjectThoiTrang/internal/mykafka"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/cart"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/token"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/vnpay"
	httpserver "github.com/lcu1903/ProjectThoiTrang/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	vnPayService, err := vnpay.New(cfg.VNPay)
	if err != nil {
		log.Fatalf("vnpay config error: %v", err)
	}

	esClient, err := es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaAddress)
	defer producer.Close()

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
	}
	cartService := &cart.Service{DB: db}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:     &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: producer},
		CategoryHandler: &handlers.CategoryHandler{DB: db, Producer: producer},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: producer},
		CartHandler:     &handlers.CartHandler{Svc: cartService, Producer: producer},
		PaymentHandler:  &handlers.PaymentHandler{DB: db, Cart: cartService, VnPay: vnPayService, Producer: producer},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: cfg.ESIndex},
		Tokens:          tokens,
	})

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
