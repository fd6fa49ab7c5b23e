package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/database"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/handlers"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/middleware"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	ckcache "github.com/Krypt-Cyber/ckryptbit.xyz/pkg/cache"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("backend", cfg.Backend.BaseURL).
		Msg("Starting console gateway")

	// Initialize the terminal store
	store, err := database.NewTerminalStore(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer store.Close()
	store.SetOpRecorder(middleware.RecordStoreOp)

	// Initialize the catalog cache
	var catalogCache *ckcache.Cache
	if cfg.Cache.Enabled {
		catalogCache = ckcache.NewCache(store.Client())
	}

	// Initialize the backend client. The token source is bound to the
	// console after construction; until then no session token exists.
	var console *services.Console
	client := api.NewClient(&cfg.Backend,
		api.TokenFunc(func() string {
			if console == nil {
				return ""
			}
			return console.Session.CurrentToken()
		}),
		api.WithCallRecorder(middleware.RecordBackendCall),
	)

	// Wire the service graph and restore persisted state
	console = services.NewConsole(cfg, client, store, services.NewScheduler(), catalogCache)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := console.Init(initCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore console state")
	}
	cancelInit()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(console)
	shopHandler := handlers.NewShopHandler(console)
	ordersHandler := handlers.NewOrdersHandler(console)
	chatHandler := handlers.NewChatHandler(console)
	consoleHandler := handlers.NewConsoleHandler(console)
	healthHandler := handlers.NewHealthHandler(store, cfg.Backend.BaseURL)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(store, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", middleware.MetricsHandler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (rate limited)
		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Limit("auth"))
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/register", authHandler.Register)
		})
		r.Post("/auth/logout", authHandler.Logout)

		// Operator profile and relay
		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", authHandler.Profile)
			r.Post("/relay/activate", authHandler.ActivateRelay)
			r.Post("/relay/deactivate", authHandler.DeactivateRelay)
			r.Post("/purge-my-data", authHandler.Purge)
		})

		// Shop and carrier
		r.Get("/products", shopHandler.ListProducts)
		r.Post("/products/refresh", shopHandler.RefreshProducts)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", shopHandler.Cart)
			r.Post("/", shopHandler.AddToCart)
			r.Put("/{productId}", shopHandler.UpdateCartQuantity)
			r.Delete("/{productId}", shopHandler.RemoveFromCart)
		})
		r.Post("/checkout", shopHandler.Checkout)

		// Orders and assets
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Post("/refresh", ordersHandler.RefreshUserData)
			r.Get("/pending-target", ordersHandler.PendingTarget)
			r.Post("/{id}/target-info", ordersHandler.SubmitTargetInfo)
			r.Post("/{id}/ack", ordersHandler.Acknowledge)
			r.Post("/{id}/feedback", ordersHandler.Feedback)
		})
		r.Get("/assets", ordersHandler.ListAssets)

		// Admin operations
		r.Route("/admin", func(r chi.Router) {
			r.Post("/products", shopHandler.AddProduct)
			r.Put("/products/{id}", shopHandler.UpdateProduct)
			r.Delete("/products/{id}", shopHandler.DeleteProduct)
			r.Get("/orders", ordersHandler.AdminListOrders)
			r.Put("/orders/{id}/status", ordersHandler.AdminUpdateStatus)
			r.Post("/orders/{id}/notify", ordersHandler.AdminNotify)
		})

		// AI uplink and architect
		r.Route("/chat", func(r chi.Router) {
			r.Get("/messages", chatHandler.Messages)
			r.Post("/send", chatHandler.Send)
			r.Post("/clear", chatHandler.Clear)
			r.Get("/provider", chatHandler.Provider)
			r.Put("/provider", chatHandler.SelectProvider)
			r.Put("/provider/local-llm", chatHandler.ConfigureLocalLlm)
			r.Put("/provider/huggingface", chatHandler.ConfigureHuggingFace)
		})
		r.Route("/architect", func(r chi.Router) {
			r.Get("/blueprint", chatHandler.Blueprint)
			r.Post("/blueprint", chatHandler.GenerateBlueprint)
		})

		// Views, threat feed, logs
		r.Get("/view", consoleHandler.CurrentView)
		r.Post("/view/navigate", consoleHandler.Navigate)
		r.Get("/threat-feed", consoleHandler.ThreatEvents)
		r.Delete("/threat-feed", consoleHandler.ClearThreatEvents)
		r.Get("/errors", consoleHandler.Errors)
		r.Delete("/errors", consoleHandler.ClearErrors)
		r.Get("/alerts", consoleHandler.Alerts)
		r.Delete("/alerts", consoleHandler.ClearAlerts)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server...")

	// Stop the threat feed before the HTTP surface drains
	console.Threats.Stop()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped gracefully")
}
