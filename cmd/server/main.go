package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/cart"
	"github.com/techhouse/storefront/internal/config"
	"github.com/techhouse/storefront/internal/events"
	"github.com/techhouse/storefront/internal/handlers"
	"github.com/techhouse/storefront/internal/httpserver"
	"github.com/techhouse/storefront/internal/lockout"
	"github.com/techhouse/storefront/internal/logging"
	loggingmw "github.com/techhouse/storefront/internal/middleware/logging"
	"github.com/techhouse/storefront/internal/password"
	"github.com/techhouse/storefront/internal/policy"
	"github.com/techhouse/storefront/internal/repo"
	"github.com/techhouse/storefront/internal/search"
	"github.com/techhouse/storefront/internal/session"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	level := "info"
	if configuration.DEBUG {
		level = "debug"
	}
	logger := logging.New(level)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{configuration.KAFKA_ADDRESS}, "audit_events")
	}

	sink := &audit.Sink{DB: db, Producer: producer}
	sessions := &session.Store{DB: db, Lifetime: configuration.SESSION_LIFETIME}
	tracker := &lockout.Tracker{DB: db, Sink: sink}
	gate := &policy.Gate{Sessions: sessions, Sink: sink, Secret: []byte(configuration.JWT_SECRET)}

	observers := []repo.Observer{&audit.Observer{Sink: sink}}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := search.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		observers = append(observers, &search.Indexer{ES: esClient, Index: search.ProductIndex})
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: search.ProductIndex, Sink: sink}
	}
	if producer != nil {
		observers = append(observers, &events.Observer{Producer: producer})
	}

	products := &repo.ProductRepo{DB: db, Observers: observers}
	users := &repo.UserRepo{DB: db, Observers: observers}
	carts := &cart.Service{DB: db, Sessions: sessions, Sink: sink}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(policy.SecurityHeaders)
	e.Use(gate.ErrorAudit)
	e.Use(policy.AllowedHosts(configuration.ALLOWED_HOSTS))

	deps := httpserver.Deps{
		Gate: gate,
		AuthHandler: &handlers.AuthHandler{
			DB:       db,
			Sink:     sink,
			Tracker:  tracker,
			Sessions: sessions,
			Gate:     gate,
			Policy:   password.Policy{MinLength: configuration.PASSWORD_MIN_LENGTH},
		},
		ProductHandler: &handlers.ProductHandler{Products: products, Sink: sink},
		CartHandler:    &handlers.CartHandler{Carts: carts},
		AuditHandler:   &handlers.AuditHandler{Sink: sink, Tracker: tracker},
		UserHandler:    &handlers.UserAdminHandler{Users: users},
		SearchHandler:  searchHandler,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
