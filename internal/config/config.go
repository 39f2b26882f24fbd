// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joao-fontenele/canteen/internal/slots"
)

// LoadDotEnv loads the given files, or .env when none are named. Missing
// files are ignored and variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Env reads typed values and collects every problem so they can be
// reported together.
type Env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func FromOS() *Env {
	return &Env{lookup: os.LookupEnv}
}

func FromMap(m map[string]string) *Env {
	return &Env{lookup: func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}}
}

func (e *Env) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *Env) String(key, def string) string {
	if v, ok := e.get(key); ok {
		return v
	}
	return def
}

func (e *Env) Required(key string) string {
	v, ok := e.get(key)
	if !ok {
		e.errs = append(e.errs, fmt.Errorf("%s environment variable is required", key))
	}
	return v
}

func (e *Env) Int(key string, def int) int {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (e *Env) Duration(key string, def time.Duration) time.Duration {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

// List splits a comma separated value, dropping empty entries.
func (e *Env) List(key string) []string {
	v, ok := e.get(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *Env) Location(key string, def *time.Location) *time.Location {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return loc
}

func (e *Env) Err() error {
	return errors.Join(e.errs...)
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config carries every setting the services read. Each main checks the
// fields it needs.
type Config struct {
	Port                string
	StorageDriver       string
	PostgresURL         string
	DBSchema            string
	MigrationsPath      string
	KafkaBrokers        []string
	RedisAddr           string
	OTLPEndpoint        string
	EmailServiceURL     string
	OrdersServiceURL    string
	InventoryServiceURL string
	TokenPrefix         string
	TokenAttempts       int
	KafkaStartOffset    string
	RequestTimeout      time.Duration
	Schedule            slots.Config
}

// Load reads an optional .env file and then the environment.
func Load(defaultPort string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return Parse(FromOS(), defaultPort)
}

func Parse(e *Env, defaultPort string) (Config, error) {
	cfg := Config{
		Port:                e.String("PORT", defaultPort),
		PostgresURL:         e.String("POSTGRES_URL", ""),
		DBSchema:            e.String("DB_SCHEMA", "canteen"),
		MigrationsPath:      e.String("MIGRATIONS_PATH", "file://migrations"),
		KafkaBrokers:        e.List("KAFKA_BROKERS"),
		RedisAddr:           e.String("REDIS_ADDR", ""),
		OTLPEndpoint:        e.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EmailServiceURL:     e.String("EMAIL_SERVICE_URL", ""),
		OrdersServiceURL:    e.String("ORDERS_SERVICE_URL", ""),
		InventoryServiceURL: e.String("INVENTORY_SERVICE_URL", ""),
		TokenPrefix:         e.String("TOKEN_PREFIX", "TKN-"),
		TokenAttempts:       e.Int("TOKEN_ATTEMPTS", 5),
		KafkaStartOffset:    e.String("KAFKA_START_OFFSET", "first"),
		RequestTimeout:      e.Duration("REQUEST_TIMEOUT", 5*time.Second),
	}

	cfg.StorageDriver = e.String("STORAGE_DRIVER", "")
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageMemory
		if cfg.PostgresURL != "" {
			cfg.StorageDriver = StoragePostgres
		}
	}

	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		e.Required("POSTGRES_URL")
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver)
	}
	if cfg.TokenAttempts < 1 {
		return Config{}, fmt.Errorf("TOKEN_ATTEMPTS: must be positive, got %d", cfg.TokenAttempts)
	}

	schedule, err := Schedule(e)
	if err != nil {
		return Config{}, err
	}
	cfg.Schedule = schedule
	return cfg, nil
}

// Schedule builds the slot configuration from OPEN_HOUR, CLOSE_HOUR,
// SLOT_MINUTES, TOTAL_TABLES and TIMEZONE.
func Schedule(e *Env) (slots.Config, error) {
	def := slots.DefaultConfig()
	cfg := slots.Config{
		OpenHour:    e.Int("OPEN_HOUR", def.OpenHour),
		CloseHour:   e.Int("CLOSE_HOUR", def.CloseHour),
		SlotWidth:   time.Duration(e.Int("SLOT_MINUTES", int(def.SlotWidth/time.Minute))) * time.Minute,
		TotalTables: e.Int("TOTAL_TABLES", def.TotalTables),
		Location:    e.Location("TIMEZONE", def.Location),
	}
	if err := e.Err(); err != nil {
		return slots.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return slots.Config{}, fmt.Errorf("invalid schedule: %w", err)
	}
	return cfg, nil
}
