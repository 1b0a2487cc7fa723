// Package config reads runtime settings from the environment, after loading
// a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

type Config struct {
	Port           int
	Administrator  models.Identity
	StoreDriver    string
	DatabaseURL    string
	SQLitePath     string
	KafkaBrokers   []string
	KafkaTopic     string
	AmountDecimals int32
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding variables that are already set, then
// builds the Config. Missing files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:        8080,
		StoreDriver: getenv("STORE_DRIVER", "memory"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH", "prizepool.db"),
		KafkaTopic:  getenv("KAFKA_TOPIC", "prize_pool_calls"),
	}

	admin, ok := models.ParseIdentity(os.Getenv("ADMINISTRATOR"))
	if !ok {
		return nil, errors.New("ADMINISTRATOR is required")
	}
	cfg.Administrator = admin

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("AMOUNT_DECIMALS"); v != "" {
		d, err := strconv.ParseInt(v, 10, 32)
		if err != nil || d < 0 || d > 30 {
			return nil, fmt.Errorf("invalid AMOUNT_DECIMALS %q", v)
		}
		cfg.AmountDecimals = int32(d)
	}

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
