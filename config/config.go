/*
Package config loads server settings.

SOURCES (later wins):
  1. .env in the working directory (optional)
  2. Environment variables
  3. Command-line flags (-port, -db)

KEYS:
  PORT                  HTTP port (8080)
  DB_PATH               SQLite path, ":memory:" for a throwaway database (tess.db)
  JWT_SECRET            HMAC key for bearer tokens (random per process if unset)
  TOKEN_TTL             Token lifetime (24h)
  ADMIN_PASSWORD        Password given to the default admins on first start
  BCRYPT_COST           Password hashing cost (bcrypt default)
  REDIS_URL             redis://... enables cross-instance change events
  PAYROLL_CRON          Schedule for generating last period's salaries (0 6 1 * *)
  PAYROLL_CRON_ENABLED  true/false (true)
  TIMEZONE              Business timezone for periods and dashboards (Asia/Manila)
  CORS_ORIGINS          Comma-separated allowed origins
*/
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	TokenTTL           time.Duration
	AdminPassword      string
	BcryptCost         int
	RedisURL           string
	PayrollCron        string
	PayrollCronEnabled bool
	Timezone           string
	Location           *time.Location
	CORSOrigins        []string
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Load reads .env, the environment and then args (without the program name).
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] No .env file loaded: %v", err)
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "tess.db"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		PayrollCron:   getEnv("PAYROLL_CRON", "0 6 1 * *"),
		Timezone:      getEnv("TIMEZONE", "Asia/Manila"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "")),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = defaultOrigins
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PayrollCronEnabled, err = getBool("PAYROLL_CRON_ENABLED", true); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		log.Println("[Config] JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
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
