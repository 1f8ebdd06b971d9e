package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	App         AppConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Auth        AuthConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Consistency ConsistencyConfig
	Admin       AdminConfig
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// StoreConfig selects the entity store backend: postgres, mongo or memory.
type StoreConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Driver       string // pgx or postgres (lib/pq)
	DSN          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig is optional; an empty Addr disables the redis reporter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Provider                string // jwt or firebase
	JWTSecret               string
	FirebaseCredentialsPath string
	CookieName              string
}

type CORSConfig struct {
	FrontendURL string
}

// RateLimitConfig is per client IP. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type ConsistencyConfig struct {
	RecheckLoans     bool
	RepairSchedule   string
	InconsistencyCap int
}

// AdminConfig seeds the first administrator (worker seed-admin).
type AdminConfig struct {
	Email  string
	Nom    string
	Prenom string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "5000"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "pgx"),
			DSN:          getEnv("DB_DSN", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "asso"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "asso"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(getEnv("AUTH_PROVIDER", "jwt")),
			JWTSecret:               getEnv("JWT_SECRET", ""),
			FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			CookieName:              getEnv("AUTH_COOKIE_NAME", "accessToken"),
		},
		CORS: CORSConfig{
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Consistency: ConsistencyConfig{
			RecheckLoans:     getEnvAsBool("CONSISTENCY_RECHECK_LOANS", false),
			RepairSchedule:   getEnv("REPAIR_SCHEDULE", "0 0 3 * * *"),
			InconsistencyCap: getEnvAsInt("INCONSISTENCY_CAP", 1000),
		},
		Admin: AdminConfig{
			Email:  getEnv("ADMIN_EMAIL", ""),
			Nom:    getEnv("ADMIN_NOM", "Admin"),
			Prenom: getEnv("ADMIN_PRENOM", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case "postgres":
		if c.Database.Driver != "pgx" && c.Database.Driver != "postgres" {
			return fmt.Errorf("DB_DRIVER must be pgx or postgres, got %q", c.Database.Driver)
		}
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_DATABASE is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres, mongo or memory, got %q", c.Store.Backend)
	}

	switch c.Auth.Provider {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
	case "firebase":
	default:
		return fmt.Errorf("AUTH_PROVIDER must be jwt or firebase, got %q", c.Auth.Provider)
	}

	if c.Consistency.InconsistencyCap <= 0 {
		return fmt.Errorf("INCONSISTENCY_CAP must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}
