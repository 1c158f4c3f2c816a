package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	NotifierLocal    = "local"
	NotifierRedis    = "redis"
	NotifierPostgres = "postgres"

	DeleteCascade = "cascade"
	DeleteOrphan  = "orphan"
)

type Config struct {
	// Server configuration
	ServerPort  string `mapstructure:"port"`
	Environment string `mapstructure:"env"`
	EntryPath   string `mapstructure:"entry_path"`

	// Database configuration
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_sslmode"`

	// Redis configuration, empty disables redis
	RedisAddress string `mapstructure:"redis_address"`

	// Session configuration
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	IdentityURL string        `mapstructure:"identity_url"`

	// The single account allowed in
	OwnerName     string `mapstructure:"owner_name"`
	OwnerEmail    string `mapstructure:"owner_email"`
	OwnerPassword string `mapstructure:"owner_password"`

	// Records
	Notifier             string        `mapstructure:"notifier"`
	RevisionDeletePolicy string        `mapstructure:"revision_delete_policy"`
	DraftTTL             time.Duration `mapstructure:"draft_ttl"`
	WorkerPoolSize       int           `mapstructure:"worker_pool_size"`

	FrontendAddress string `mapstructure:"frontend_address"`
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=%v",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks settings the process cannot start without.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServerPort, validation.Required),
		validation.Field(&c.OwnerEmail, validation.Required),
		validation.Field(&c.Notifier, validation.In(NotifierLocal, NotifierRedis, NotifierPostgres)),
		validation.Field(&c.RevisionDeletePolicy, validation.In(DeleteCascade, DeleteOrphan)),
		validation.Field(&c.TokenTTL, validation.Min(time.Minute)),
		validation.Field(&c.WorkerPoolSize, validation.Min(1)),
	)
}

// Load reads .env (if any), then the optional config file at path, then the
// environment. Environment variables win.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("entry_path", "/")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "projet")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("redis_address", "localhost:6379")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 72*time.Hour)
	v.SetDefault("identity_url", "")
	v.SetDefault("owner_name", "Owner")
	v.SetDefault("owner_email", "owner@projet.local")
	v.SetDefault("owner_password", "")
	v.SetDefault("notifier", NotifierLocal)
	v.SetDefault("revision_delete_policy", DeleteCascade)
	v.SetDefault("draft_ttl", 24*time.Hour)
	v.SetDefault("worker_pool_size", 4)
	v.SetDefault("frontend_address", "https://production-frontend.com")

	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		if err := applyDatabaseURL(&cfg, dbURL); err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret(32)
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv looks for .env in the working directory and two parents.
func loadDotEnv() {
	for _, envPath := range []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	} {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
	}
}

func applyDatabaseURL(cfg *Config, dbURL string) error {
	u, err := url.Parse(dbURL)
	if err != nil {
		return err
	}
	if u.Hostname() == "" {
		return fmt.Errorf("missing host in %q", u.Redacted())
	}

	password, _ := u.User.Password()
	port := "5432"
	if u.Port() != "" {
		if _, err := strconv.Atoi(u.Port()); err != nil {
			return fmt.Errorf("invalid port %q", u.Port())
		}
		port = u.Port()
	}

	cfg.DBHost = u.Hostname()
	cfg.DBPort = port
	cfg.DBUser = u.User.Username()
	cfg.DBPassword = password
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if mode := u.Query().Get("sslmode"); mode != "" {
		cfg.DBSSLMode = mode
	}
	return nil
}

func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
