package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"

	emailchange "github.com/kazu0702/vs-fund-api"
	"github.com/kazu0702/vs-fund-api/billing"
	"github.com/kazu0702/vs-fund-api/config"
	"github.com/kazu0702/vs-fund-api/provider/memberstack"
	"github.com/kazu0702/vs-fund-api/provider/sendgrid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	handler := newColorHandler(log.New(os.Stdout, "", 0), parseLevel(cfg.App.LogLevel))
	slogger := slog.New(handler)
	logger := slogAdapter{s: slogger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openDB(cfg)
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	msClient, err := memberstack.NewClient(memberstack.Config{
		APIKey:  cfg.Memberstack.APIKey,
		BaseURL: cfg.Memberstack.BaseURL,
		Timeout: cfg.Memberstack.Timeout,
	})
	if err != nil {
		log.Fatalf("memberstack: %v", err)
	}
	directory := memberstack.NewDirectory(msClient, memberstack.WithLogger(logger))

	store := emailchange.NewStore(db)
	audit := emailchange.NewAuditTrailSink(db, logger)

	requests := emailchange.NewRequestEmailChangeHandler(store, directory).
		WithNotifier(newNotifier(cfg, logger)).
		WithTTL(cfg.EmailChange.TTL).
		WithActivitySink(audit).
		WithLogger(logger)

	confirms := emailchange.NewConfirmEmailChangeHandler(store, directory).
		WithActivitySink(audit).
		WithLogger(logger)

	opts := []emailchange.EmailChangeControllerOption{
		emailchange.WithHandlers(requests, confirms),
		emailchange.WithControllerLogger(logger),
		emailchange.WithDebug(cfg.App.Debug),
		emailchange.WithDB(db),
		emailchange.WithRedirects(cfg.EmailChange.SuccessURL, cfg.EmailChange.FailureURL),
	}

	if cfg.Stripe.SecretKey != "" {
		swapper, err := billing.NewStripePlanSwapper(cfg.Stripe.SecretKey)
		if err != nil {
			log.Fatalf("stripe: %v", err)
		}
		opts = append(opts, emailchange.WithBilling(swapper))
	} else {
		slogger.Warn("STRIPE_SECRET_KEY not set, change-plan endpoint disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:               "vs-fund-api",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigin,
		AllowMethods: "GET,POST",
		AllowHeaders: "Content-Type",
		MaxAge:       86400,
	}))

	controller := emailchange.NewEmailChangeController(opts...)
	controller.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	janitor := emailchange.NewJanitor(store, cfg.EmailChange.SweepInterval).WithLogger(logger)
	go janitor.Run(ctx)

	go func() {
		slogger.Info("listening", slog.String("addr", cfg.HTTP.Addr))
		if err := app.Listen(cfg.HTTP.Addr); err != nil {
			slogger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slogger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slogger.Error("shutdown", slog.Any("error", err))
	}
}

func openDB(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DB.DSN)))
	sqldb.SetMaxOpenConns(5)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(cfg.App.Debug)))
	return db
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	fsys, err := emailchange.MigrationsFS()
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if !group.IsZero() {
		log.Printf("migrated to %s", group)
	}
	return nil
}

// newNotifier picks SendGrid when configured, falling back to a logging
// notifier so local runs still surface the confirmation link.
func newNotifier(cfg *config.Config, logger emailchange.Logger) emailchange.Notifier {
	if cfg.SendGrid.APIKey != "" && cfg.SendGrid.FromEmail != "" {
		sender, err := sendgrid.NewSender(sendgrid.Config{
			APIKey:     cfg.SendGrid.APIKey,
			FromName:   cfg.SendGrid.FromName,
			FromEmail:  cfg.SendGrid.FromEmail,
			ConfirmURL: cfg.SendGrid.ConfirmURL,
		})
		if err == nil {
			return sender
		}
		logger.Error("sendgrid notifier unavailable, logging links instead: %v", err)
	}

	confirmURL := cfg.SendGrid.ConfirmURL
	return emailchange.NotifierFunc(func(_ context.Context, req *emailchange.EmailChangeRequest) error {
		logger.Info("confirmation link for %s: %s?token=%s", req.NewEmail, confirmURL, req.Token)
		return nil
	})
}
