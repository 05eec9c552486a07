// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Store backends.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env            string // APP_ENV: dev, test, prod
	Port           string // APP_PORT
	Store          string // STORE: mysql (default) or memory
	DBUser         string
	DBPass         string // empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // required; signs session tokens
	AccessTTLMin   int    // session token lifetime in minutes
	BcryptCost     int
	DataDir        string // root for attachment files
	LogLevel       string
	AMQPURL        string
	EventsEnabled  bool
	MaxUploadBytes int64
}

// Load reads the process environment, after merging in ./.env (or the
// file named by ENV_FILE) when present.  Variables already set in the
// environment win over the file.  Missing required values are reported
// together in one error.
func Load() (Config, error) {
	envFile := envStr("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8081"),
		Store:          strings.ToLower(envStr("STORE", StoreMySQL)),
		DBUser:         envStr("DB_USER", "root"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         envStr("DB_HOST", "127.0.0.1"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         envStr("DB_NAME", "memos"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		BcryptCost:     envInt("BCRYPT_COST", bcrypt.DefaultCost),
		DataDir:        envStr("DATA_DIR", "./data"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		AMQPURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsEnabled:  envBool("EVENTS_ENABLED", false),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 32)) << 20,
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.EventsEnabled && cfg.AMQPURL == "" {
		missing = append(missing, "RABBITMQ_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.Store != StoreMySQL && cfg.Store != StoreMemory {
		return Config{}, fmt.Errorf("invalid STORE %q", cfg.Store)
	}
	if cfg.AccessTTLMin < 1 {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN %d", cfg.AccessTTLMin)
	}
	return cfg, nil
}

// DSN renders the MySQL data source name.  parseTime=true maps DATETIME
// to time.Time; loc=UTC keeps times consistent.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
		auth, c.DBHost, c.DBPort, c.DBName)
}

// AttachmentDir is where uploaded files are written.
func (c Config) AttachmentDir() string {
	return filepath.Join(c.DataDir, "attachments")
}
