package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"medicos/m/internal/api"
	"medicos/m/internal/chatbot"
	"medicos/m/internal/checkout"
	"medicos/m/internal/config"
	"medicos/m/internal/database"
	"medicos/m/internal/inventory"
	"medicos/m/internal/ledger"
	"medicos/m/internal/logging"
	"medicos/m/internal/metrics"
	"medicos/m/internal/migrations"
	"medicos/m/internal/payment"
	"medicos/m/internal/receipt"
	"medicos/m/internal/seed"
	"medicos/m/internal/users"
)

var infraModule = fx.Provide(
	provideLogger,
	provideDB,
	metrics.New,
)

var storeModule = fx.Options(
	fx.Provide(
		inventory.New,
		ledger.New,
		users.New,
	),
	fx.Invoke(seedDefaults),
)

var serviceModule = fx.Provide(
	provideGateway,
	provideDispatcher,
	provideCheckout,
	provideChatbot,
)

func provideLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.Env)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	lc.Append(fx.StopHook(func() { _ = logger.Sync() }))
	return logger, nil
}

func provideDB(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database_ready", zap.String("driver", cfg.DatabaseDriver))
	lc.Append(fx.StopHook(db.Close))
	return db, nil
}

func seedDefaults(cfg config.Config, us *users.Store, inv *inventory.Store, logger *zap.Logger) error {
	if !cfg.SeedDefaults {
		return nil
	}
	ctx := context.Background()
	if err := seed.Accounts(ctx, us, cfg.AdminPassword, cfg.StaffPassword, logger); err != nil {
		return err
	}
	if _, err := seed.SampleMedicines(ctx, inv, logger); err != nil {
		return err
	}
	if cfg.CatalogCSV != "" {
		if _, err := seed.LoadCatalogFile(ctx, inv, cfg.CatalogCSV, logger); err != nil {
			logger.Warn("catalog_import_failed", zap.String("path", cfg.CatalogCSV), zap.Error(err))
		}
	}
	return nil
}

type gatewayOut struct {
	fx.Out

	Gateway   payment.Gateway
	Simulator *payment.Fake
}

// provideGateway returns the Razorpay client, or the in-memory gateway when
// RAZORPAY_MODE=fake. The simulator is nil in live mode.
func provideGateway(cfg config.Config, m *metrics.Metrics, logger *zap.Logger) gatewayOut {
	if cfg.Razorpay.Mode == "fake" {
		secret := cfg.Razorpay.KeySecret
		if secret == "" {
			secret = cfg.Secret
		}
		fake := payment.NewFake(secret)
		logger.Warn("payment_gateway_fake", zap.String("reason", "RAZORPAY_MODE=fake"))
		return gatewayOut{Gateway: payment.NewInstrumented(fake, m), Simulator: fake}
	}
	rp := payment.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Timeout)
	return gatewayOut{Gateway: payment.NewInstrumented(rp, m)}
}

func provideDispatcher(lc fx.Lifecycle, cfg config.Config, m *metrics.Metrics, logger *zap.Logger) *receipt.Dispatcher {
	var sender receipt.Sender
	if cfg.Twilio.Enabled() {
		sender = receipt.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromWhatsApp)
	} else {
		logger.Info("receipt_sender_log_only")
		sender = receipt.NewLogSender(logger)
	}
	d := receipt.NewDispatcher(sender, cfg.PharmacyName, cfg.Twilio.SendTimeout, m, logger)
	// registered before the HTTP server hook, so it runs after the server drains
	lc.Append(fx.StopHook(d.Wait))
	return d
}

func provideCheckout(db *sqlx.DB, inv *inventory.Store, led *ledger.Ledger, gw payment.Gateway,
	d *receipt.Dispatcher, m *metrics.Metrics, cfg config.Config) *checkout.Service {
	return checkout.New(db, inv, led, gw, d, m, cfg.Currency)
}

func provideChatbot(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*chatbot.Bot, error) {
	var completers []chatbot.Completer
	if cfg.Chatbot.OpenAIKey != "" {
		completers = append(completers, chatbot.NewOpenAI(cfg.Chatbot.OpenAIKey, cfg.Chatbot.OpenAIModel))
	}
	if cfg.Chatbot.GeminiKey != "" {
		g, err := chatbot.NewGemini(context.Background(), cfg.Chatbot.GeminiKey, cfg.Chatbot.GeminiModel)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(g.Close))
		completers = append(completers, g)
	}
	return chatbot.New(logger, completers...), nil
}

type handlerIn struct {
	fx.In

	Config    config.Config
	Inventory *inventory.Store
	Ledger    *ledger.Ledger
	Checkout  *checkout.Service
	Receipts  *receipt.Dispatcher
	Users     *users.Store
	Chatbot   *chatbot.Bot
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Simulator *payment.Fake
}

func provideHandler(in handlerIn) *api.Handler {
	d := api.Deps{
		Secret:      in.Config.Secret,
		CORSOrigins: in.Config.CORSOrigins,
		Inventory:   in.Inventory,
		Ledger:      in.Ledger,
		Checkout:    in.Checkout,
		Receipts:    in.Receipts,
		Users:       in.Users,
		Chatbot:     in.Chatbot,
		Metrics:     in.Metrics,
		Logger:      in.Logger,
		Simulator:   in.Simulator,
	}
	return api.New(d)
}
