package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/google/uuid"
)

// PostgresTestsEnabled gates tests that need a live postgres server.
func PostgresTestsEnabled() bool {
	return os.Getenv("TEST_POSTGRES") == "true"
}

func GetDbConfigFromEnv() *config.DatabaseConfig {
	port, err := strconv.Atoi(getEnvOrDefault("OPERATOR_STATE_DATABASE_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     getEnvOrDefault("OPERATOR_STATE_DATABASE_HOST", "localhost"),
		Port:     port,
		User:     os.Getenv("OPERATOR_STATE_DATABASE_USER"),
		Password: os.Getenv("OPERATOR_STATE_DATABASE_PASSWORD"),
		DbName:   getEnvOrDefault("OPERATOR_STATE_DATABASE_DB_NAME", "operator_state"),
	}
}

// GenerateTestDbName returns a unique, postgres-safe database name.
func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}

func getEnvOrDefault(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
