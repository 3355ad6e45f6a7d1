// Package config reads process configuration from the environment:
// Postgres and Redis settings, JWT_SECRET, CORS origins, and the
// SUMSUB_* / TRUID_* provider credentials consumed by LoadProviders.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if one exists next to the
// binary. Absence is normal in deployed environments.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns the named variable, or defaultVal when it is unset or
// empty.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns the named variable parsed as an int, or defaultVal
// when it is unset or not a number.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// IsProduction reports whether ENV is set to production. Anything else,
// including unset, counts as development.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
