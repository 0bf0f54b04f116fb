package main

import (
	"log"
	"net/http"

	"github.com/promptforge/backend/internal/answers"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/config"
	"github.com/promptforge/backend/internal/db"
	"github.com/promptforge/backend/internal/generation"
	"github.com/promptforge/backend/internal/gpt"
	"github.com/promptforge/backend/internal/handlers"
	"github.com/promptforge/backend/internal/history"
	"github.com/promptforge/backend/internal/logging"
	"github.com/promptforge/backend/internal/payment"
	"github.com/promptforge/backend/internal/paywall"
	"github.com/promptforge/backend/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Mode)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	if err := db.Init(cfg.DBPath); err != nil {
		logger.Fatal("db init", "err", err)
	}
	gdb := db.Conn()

	var gptClient gpt.Client
	if cfg.FakeGeneration {
		logger.Warn("running with canned generation responses")
		gptClient = &gpt.Scripted{Response: "generation is disabled in this environment"}
	} else {
		gptClient, err = gpt.NewOpenAI(gpt.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OpenAITimeout,
		}, logger)
		if err != nil {
			logger.Fatal("gpt client", "err", err)
		}
	}

	payClient := payment.NewHTTPClient(payment.HTTPConfig{
		BaseURL:    cfg.PaymentBaseURL,
		ShopID:     cfg.ShopID,
		ShopSecret: cfg.ShopSecret,
		Timeout:    cfg.PaymentTimeout,
	}, logger)

	store := answers.New(gdb)
	router := web.Router(web.Deps{
		Questions: &handlers.Questions{
			Catalog: catalog.New(gdb),
			Store:   store,
			Gen:     generation.New(gdb, gptClient, logger),
		},
		Templates: &handlers.Templates{Store: store},
		Payments: &handlers.Payments{
			Engine:   paywall.NewEngine(gdb),
			Checkout: paywall.NewCheckout(gdb, payClient, cfg.PaymentNetworks, logger),
		},
		History:   &handlers.History{Service: history.New(gdb)},
		JWTSecret: []byte(cfg.JWTSecret),
	})

	logger.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Fatal("server", "err", err)
	}
}
