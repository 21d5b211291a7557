package main

import (
	"context"   // Redis ping
	"net"       // Listener
	"net/http"  // HTTP server
	"os"        // Signals and stdout
	"os/signal" // Ctrl-C handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"survivor_pool/internal/access"   // Session resolution
	"survivor_pool/internal/api"      // HTTP handlers and router
	"survivor_pool/internal/auth"     // Token signer
	"survivor_pool/internal/cache"    // Listing cache
	"survivor_pool/internal/config"   // Configuration
	"survivor_pool/internal/db"       // Database connection and schema
	"survivor_pool/internal/deadline" // Week locking
	"survivor_pool/internal/mail"     // Confirmation mail
	"survivor_pool/internal/service"  // Pool operations

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Input validation
	"github.com/redis/go-redis/v9"           // Redis client
	"github.com/sirupsen/logrus"             // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := setupLogger(cfg)

	// Connect to the database and bring the schema up to date
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), nil)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client, caching stays off without an address
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}
	listings := cache.New(redisClient, cfg.CacheTTL)

	// Mail goes through SendGrid when a key is configured
	var sender mail.Sender = mail.LogSender{}
	if cfg.SendGridAPIKey != "" {
		sender = mail.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	}
	dispatcher := mail.NewDispatcher(sender, 10*time.Second)

	base, _ := cfg.SeasonBaseDeadline() // Checked by Validate
	policy := deadline.NewPolicy(base, deadline.WithLockNewPicks(cfg.LockNewPicks))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL, cfg.ConfirmTTL)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(api.Deps{
		DB:             gdb,
		Gate:           access.NewGate(gdb, tokens),
		Identity:       service.NewIdentityService(gdb, tokens, dispatcher, listings, validator.New(), cfg.PublicURL),
		Ledger:         service.NewLedgerService(gdb, policy, listings),
		Registry:       service.NewRegistryService(gdb, listings),
		Logger:         logger,
		IsProd:         cfg.IsProd,
		FrontendURL:    cfg.FrontendURL,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logrus.Fatalf("failed to listen: %v", err)
	}

	// signal.Notify requires the channel to be buffered
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logrus.WithFields(logrus.Fields{
		"port":   cfg.AppPort,  // Listening port
		"driver": cfg.DBDriver, // Database dialect
		"cache":  listings.Enabled(),
	}).Info("Server running")
	if err := serve(server, ln, stop, 15*time.Second); err != nil {
		logrus.WithError(err).Error("Server did not stop cleanly")
	}

	dispatcher.Wait() // Handlers are done, let queued mail finish
	logrus.Info("Server stopped")
}

// setupLogger configures the standard logrus logger from cfg and returns it
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetOutput(os.Stdout)
	if cfg.IsProd {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
