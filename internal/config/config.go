package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Firebase  FirebaseConfig
	Payment   PaymentConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	Prefs     PrefsConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type StoreConfig struct {
	Driver string // postgres | firestore
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
}

type RedisConfig struct {
	Host          string
	Port          string
	Password      string
	DB            int
	ChannelPrefix string
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type AuthConfig struct {
	Provider  string // jwt | firebase
	JWTSecret string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type PaymentConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
	// shown on the client payment sheet
	MerchantName string
	ThemeColor   string
}

// CheckoutConfig holds the flat fees and rates applied to every order.
type CheckoutConfig struct {
	DeliveryFee    float64
	PlatformFee    float64
	TaxPercentage  float64
	Discount       float64
	DeliveryDays   int
	CurrencySymbol string
	SessionTTL     time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type PrefsConfig struct {
	Secret string
}

// Load reads configuration from the environment, after merging a .env file from the
// working directory when one exists. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Env:         v.GetString("SERVER_ENV"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			Database:      v.GetString("DB_DATABASE"),
			Schema:        v.GetString("DB_SCHEMA"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
			MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Host:          v.GetString("REDIS_HOST"),
			Port:          v.GetString("REDIS_PORT"),
			Password:      v.GetString("REDIS_PASSWORD"),
			DB:            v.GetInt("REDIS_DB"),
			ChannelPrefix: v.GetString("REDIS_CHANNEL_PREFIX"),
		},
		Auth: AuthConfig{
			Provider:  strings.ToLower(v.GetString("AUTH_PROVIDER")),
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Payment: PaymentConfig{
			BaseURL:   v.GetString("PAYMENT_BASE_URL"),
			KeyID:     v.GetString("PAYMENT_KEY_ID"),
			KeySecret: v.GetString("PAYMENT_KEY_SECRET"),
			Currency:  v.GetString("PAYMENT_CURRENCY"),
			Timeout:   v.GetDuration("PAYMENT_TIMEOUT"),

			MerchantName: v.GetString("PAYMENT_MERCHANT_NAME"),
			ThemeColor:   v.GetString("PAYMENT_THEME_COLOR"),
		},
		Checkout: CheckoutConfig{
			DeliveryFee:    v.GetFloat64("CHECKOUT_DELIVERY_FEE"),
			PlatformFee:    v.GetFloat64("CHECKOUT_PLATFORM_FEE"),
			TaxPercentage:  v.GetFloat64("CHECKOUT_TAX_PERCENTAGE"),
			Discount:       v.GetFloat64("CHECKOUT_DISCOUNT"),
			DeliveryDays:   v.GetInt("CHECKOUT_DELIVERY_DAYS"),
			CurrencySymbol: v.GetString("CHECKOUT_CURRENCY_SYMBOL"),
			SessionTTL:     v.GetDuration("CHECKOUT_SESSION_TTL"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Prefs: PrefsConfig{
			Secret: v.GetString("PREFS_SECRET"),
		},
	}

	if cfg.Prefs.Secret == "" {
		cfg.Prefs.Secret = cfg.Auth.JWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL_PREFIX", "storefront")

	v.SetDefault("AUTH_PROVIDER", AuthProviderJWT)

	v.SetDefault("PAYMENT_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("PAYMENT_TIMEOUT", 10*time.Second)
	v.SetDefault("PAYMENT_MERCHANT_NAME", "Storefront")
	v.SetDefault("PAYMENT_THEME_COLOR", "#1F1F1F")

	v.SetDefault("CHECKOUT_DELIVERY_FEE", 50)
	v.SetDefault("CHECKOUT_PLATFORM_FEE", 20)
	v.SetDefault("CHECKOUT_TAX_PERCENTAGE", 18)
	v.SetDefault("CHECKOUT_DISCOUNT", 0)
	v.SetDefault("CHECKOUT_DELIVERY_DAYS", 7)
	v.SetDefault("CHECKOUT_CURRENCY_SYMBOL", "₹")
	v.SetDefault("CHECKOUT_SESSION_TTL", 30*time.Minute)

	v.SetDefault("RATE_LIMIT_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
	case StoreDriverFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firestore store driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Auth.Provider {
	case AuthProviderJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the jwt auth provider")
		}
	case AuthProviderFirebase:
		if c.Firebase.ProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.Auth.Provider)
	}

	if c.Checkout.TaxPercentage < 0 || c.Checkout.DeliveryFee < 0 || c.Checkout.PlatformFee < 0 || c.Checkout.Discount < 0 {
		return errors.New("checkout fees, tax and discount must not be negative")
	}
	if c.Prefs.Secret == "" {
		return errors.New("PREFS_SECRET is required")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
