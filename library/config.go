package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config collects the environment-tunable settings. A .env file in the
// working directory is honored when present.
type Config struct {
	DataDir       string // where the collection files / database live
	StoreDriver   string // "file" or "sqlite"
	BlockOnFines  bool   // strict policy: refuse loans while fines are owed
	DueSoonDays   int    // default due-soon window
	AdminUser     string // default administrator account
	AdminPassword string
}

// LoadConfig reads configuration from the environment with sensible
// defaults for a first run.
func LoadConfig() Config {
	_ = godotenv.Load()
	dueSoon, err := strconv.Atoi(getEnv("LIBRARY_DUE_SOON_DAYS", "3"))
	if err != nil || dueSoon <= 0 {
		dueSoon = defaultDueSoonDays
	}
	blockOnFines, _ := strconv.ParseBool(getEnv("LIBRARY_BLOCK_ON_FINES", "false"))
	return Config{
		DataDir:       getEnv("LIBRARY_DATA_DIR", "data"),
		StoreDriver:   getEnv("LIBRARY_STORE", "file"),
		BlockOnFines:  blockOnFines,
		DueSoonDays:   dueSoon,
		AdminUser:     getEnv("LIBRARY_ADMIN_USER", "admin"),
		AdminPassword: getEnv("LIBRARY_ADMIN_PASSWORD", "admin123"),
	}
}

// Policy derives the circulation policy from the configuration.
func (c Config) Policy() Policy {
	return Policy{BlockOnFines: c.BlockOnFines, DueSoonDays: c.DueSoonDays}
}

// OpenStore opens the configured persistence backend.
func (c Config) OpenStore() (Store, error) {
	switch c.StoreDriver {
	case "", "file":
		return NewFileStore(c.DataDir)
	case "sqlite":
		return NewSQLStore(filepath.Join(c.DataDir, "library.db"))
	default:
		return nil, fmt.Errorf("store driver %q: %w", c.StoreDriver, ErrInvalidInput)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
