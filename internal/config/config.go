package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration values. It is built once at
// process start and handed to each component explicitly.
type Config struct {
	Secret      string
	HTTPPort    string
	ServiceName string
	Env         string

	DatabaseDriver string
	DatabaseDSN    string
	SeedDefaults   bool
	CatalogCSV     string

	PharmacyName string
	Currency     string

	CORSOrigins     []string
	ShutdownTimeout time.Duration

	// Passwords for the default accounts created by the seed.
	AdminPassword string
	StaffPassword string

	Razorpay RazorpayConfig
	Twilio   TwilioConfig
	Chatbot  ChatbotConfig
}

// RazorpayConfig carries the gateway credentials. Mode "fake" swaps in the
// in-memory gateway for local development.
type RazorpayConfig struct {
	Mode      string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	FromWhatsApp string
	SendTimeout  time.Duration
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromWhatsApp != ""
}

type ChatbotConfig struct {
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := getenv("HTTP_PORT", "8080")

	driver := getenv("DATABASE_DRIVER", "sqlite")
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		if driver == "pgx" {
			host := getenv("DB_HOST", "localhost")
			user := getenv("DB_USER", "postgres")
			dbPort := getenv("DB_PORT", "5432")
			name := getenv("DB_NAME", "medicos_pharmacy")
			password := os.Getenv("DB_PASSWORD")
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, dbPort, name)
		} else {
			dsn = "file:medicos.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{
		Secret:          secret,
		HTTPPort:        port,
		ServiceName:     getenv("SERVICE_NAME", "medicos-pos"),
		Env:             getenv("ENV", "dev"),
		DatabaseDriver:  driver,
		DatabaseDSN:     dsn,
		SeedDefaults:    getbool("SEED_DEFAULTS", true),
		CatalogCSV:      os.Getenv("CATALOG_CSV"),
		PharmacyName:    getenv("PHARMACY_NAME", "MEDicos Pharmacy"),
		Currency:        getenv("CURRENCY", "INR"),
		CORSOrigins:     getlist("CORS_ORIGINS", []string{"*"}),
		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 20*time.Second),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin123"),
		StaffPassword:   getenv("STAFF_PASSWORD", "staff123"),
		Razorpay: RazorpayConfig{
			Mode:      getenv("RAZORPAY_MODE", "live"),
			KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
			Timeout:   getduration("RAZORPAY_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
			FromWhatsApp: os.Getenv("TWILIO_WHATSAPP_FROM"),
			SendTimeout:  getduration("RECEIPT_TIMEOUT", 15*time.Second),
		},
		Chatbot: ChatbotConfig{
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIModel: getenv("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiKey:   os.Getenv("GOOGLE_API_KEY"),
			GeminiModel: getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
	}
}

// Validate reports configuration that would make the service unsafe to run.
func (c Config) Validate() error {
	if c.Env == "prod" && c.Secret == "dev_secret" {
		return fmt.Errorf("SECRET must be set in prod")
	}
	if c.Razorpay.Mode != "fake" && (c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "") {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required unless RAZORPAY_MODE=fake")
	}
	if c.Env == "prod" && c.SeedDefaults && (c.AdminPassword == "admin123" || c.StaffPassword == "staff123") {
		return fmt.Errorf("ADMIN_PASSWORD and STAFF_PASSWORD must be set when seeding in prod")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "pgx" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getlist(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getduration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
