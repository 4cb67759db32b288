package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/dinepe-backend/database"
	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/config"
	"github.com/Ananth-NQI/dinepe-backend/internal/gate"
	"github.com/Ananth-NQI/dinepe-backend/internal/handlers"
	"github.com/Ananth-NQI/dinepe-backend/internal/intent"
	"github.com/Ananth-NQI/dinepe-backend/internal/jobs"
	"github.com/Ananth-NQI/dinepe-backend/internal/logging"
	"github.com/Ananth-NQI/dinepe-backend/internal/metrics"
	"github.com/Ananth-NQI/dinepe-backend/internal/reconciler"
	"github.com/Ananth-NQI/dinepe-backend/internal/routes"
	"github.com/Ananth-NQI/dinepe-backend/internal/services"
	"github.com/Ananth-NQI/dinepe-backend/internal/session"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// Version is set at build time.
var Version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:     "dinepe",
	Short:   "DinePe WhatsApp ordering backend",
	Version: Version,
	// Running without a subcommand serves, as Cloud Run does.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and admin API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info().Msg("database migrations completed")
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads .env files for local runs, then the configuration and logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			_ = godotenv.Load("environments/.env.development")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := context.Background()

	loc, err := cfg.Restaurant.Location()
	if err != nil {
		return err
	}
	profile, err := loadProfile(cfg.Restaurant.ProfilePath, log)
	if err != nil {
		return err
	}
	menu := catalog.NewHolder(cfg.Restaurant.ProfilePath, profile)
	collector := metrics.New()

	// Ledger
	var store storage.Store
	if cfg.Database.UseMemory {
		log.Warn().Msg("using in-memory ledger (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		store = storage.NewDatabaseStore(db)
	}

	sessions, stopSessionCleanup, err := openSessions(cfg.Session, logging.Component(log, "session"))
	if err != nil {
		return err
	}
	defer sessions.Close()
	defer stopSessionCleanup()

	customerGate := gate.New(cfg.Gate.MaxQueue, cfg.Gate.WaitTimeout, collector)

	// Interpretation
	var (
		extractor intent.Extractor
		replier   services.Replier
	)
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			return err
		}
		llm, err := intent.NewLLMExtractor(ctx, chatModel)
		if err != nil {
			return err
		}
		ai, err := services.NewAIService(ctx, chatModel)
		if err != nil {
			return err
		}
		extractor, replier = llm, ai
		log.Info().Str("model", cfg.AI.Model).Msg("AI extraction and replies enabled")
	} else {
		log.Warn().Msg("AI not configured, using keyword extraction and template replies")
		extractor = intent.NewKeywordExtractor(func(phrase string) (string, bool) {
			item, ok := menu.Profile().Lookup(phrase)
			return item.Name, ok
		})
	}
	interpreter := intent.NewInterpreter(extractor, intent.NewNormalizer(cfg.AI.MinConfidence, loc), logging.Component(log, "intent"))

	rec := reconciler.New(sessions, store, reconciler.Config{
		TTL:        cfg.Session.TTL,
		WindowSize: cfg.Session.WindowSize,
	},
		reconciler.WithMenu(menu),
		reconciler.WithLogger(logging.Component(log, "reconciler")),
		reconciler.WithMetrics(collector),
		reconciler.WithOrderGate(customerGate),
	)

	// Outbound messaging
	var messenger services.Messenger
	if cfg.Twilio.Enabled() {
		twilioService, err := services.NewTwilioService(cfg.Twilio, logging.Component(log, "twilio"))
		if err != nil {
			return err
		}
		messenger = twilioService
	} else {
		log.Warn().Msg("Twilio credentials not found, replies are only logged")
		messenger = services.NewLogMessenger(logging.Component(log, "messenger"))
	}

	// Feedback jobs
	feedbackService := services.NewFeedbackService(store, messenger, customerGate, logging.Component(log, "feedback"))
	feedbackScheduler := jobs.NewFeedbackScheduler(store, feedbackService, cfg.Feedback.Delay,
		jobs.WithFeedbackLogger(logging.Component(log, "jobs")),
		jobs.WithFeedbackMetrics(collector),
	)
	defer feedbackScheduler.Stop()
	if n, err := feedbackScheduler.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("failed to recover feedback jobs")
	} else if n > 0 {
		log.Info().Int("jobs", n).Msg("feedback jobs recovered")
	}

	orderService := services.NewOrderService(store, customerGate, feedbackScheduler, logging.Component(log, "orders"))
	complaintService := services.NewComplaintService(store, logging.Component(log, "complaints"))
	costs := services.NewCostTracker(services.Pricing{
		InputPerMillion:  cfg.AI.InputCostPerMillion,
		OutputPerMillion: cfg.AI.OutputCostPerMillion,
		USDToLocal:       cfg.AI.USDToLocal,
	}, collector)
	responder := services.NewResponder(menu, replier, costs, loc, logging.Component(log, "responder"))

	whatsapp := services.NewWhatsAppService(services.WhatsAppDeps{
		Sessions:    sessions,
		Interpreter: interpreter,
		Gate:        customerGate,
		Reconciler:  rec,
		Responder:   responder,
		Messenger:   messenger,
		Menu:        menu,
		Logger:      logging.Component(log, "whatsapp"),
		Metrics:     collector,
	})

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "DinePe Backend v" + Version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Deps{
		Config:   cfg,
		Health:   handlers.NewHealthHandler(Version, store, sessions),
		WhatsApp: handlers.NewWhatsAppHandler(whatsapp, logging.Component(log, "webhook")),
		Admin: handlers.NewAdminHandler(handlers.AdminDeps{
			Store:      store,
			Sessions:   sessions,
			Orders:     orderService,
			Complaints: complaintService,
			Costs:      costs,
			Profile:    menu,
			Logger:     logging.Component(log, "admin"),
		}),
		Metrics: collector,
		Logger:  log,
	})

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("gracefully shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().
		Str("port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Str("ledger", storageType(cfg.Database)).
		Str("sessions", cfg.Session.Backend).
		Bool("whatsapp", cfg.Twilio.Enabled()).
		Bool("ai", cfg.AI.Enabled()).
		Str("restaurant", profile.Name).
		Msg("DinePe backend starting")

	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func loadProfile(path string, log zerolog.Logger) (*catalog.Profile, error) {
	if path == "" {
		log.Warn().Msg("RESTAURANT_PROFILE not set, using the built-in profile")
		return catalog.Default(), nil
	}
	profile, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load restaurant profile: %w", err)
	}
	return profile, nil
}

// openSessions opens the configured session backend and starts its expiry
// sweep. The returned func stops the sweep.
func openSessions(cfg config.SessionConfig, log zerolog.Logger) (session.Store, func(), error) {
	if cfg.Backend == "bolt" {
		store, err := session.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n, err := store.Cleanup(context.Background()); err != nil {
						log.Error().Err(err).Msg("session cleanup failed")
					} else if n > 0 {
						log.Debug().Int("removed", n).Msg("expired sessions removed")
					}
				case <-stop:
					return
				}
			}
		}()
		log.Info().Str("path", cfg.BoltPath).Msg("using bolt session store")
		return store, func() { close(stop) }, nil
	}

	store := session.NewMemoryStore(session.WithLogger(log))
	store.StartCleanup(cfg.CleanupInterval)
	// MemoryStore stops its sweep on Close.
	return store, func() {}, nil
}

func storageType(cfg config.DatabaseConfig) string {
	if cfg.UseMemory {
		return "memory"
	}
	return "postgres"
}
