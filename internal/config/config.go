package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the LiliApp BI service
type Config struct {
	// Server
	Port        string
	Environment string

	// Jumpseller upstream API
	JumpsellerBaseURL   string
	JumpsellerLogin     string
	JumpsellerAuthToken string
	JumpsellerTimeout   time.Duration
	JumpsellerRateLimit int // requests per second

	// Firebase / Firestore
	FirebaseProjectID string

	// ETL settings
	ETLBatchSize       int // max write ops per committed batch
	ExistenceChunkSize int // max IDs per existence lookup ("in" query limit)
	ETLTestRunLimit    int // records processed when testRun is set

	// Maintenance
	CleanWorkers int

	// Events
	NATSUrl string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),

		JumpsellerBaseURL:   getEnv("JUMPSELLER_API_BASE_URL", "https://api.jumpseller.com/v1"),
		JumpsellerLogin:     getEnv("JUMPSELLER_LOGIN", ""),
		JumpsellerAuthToken: getEnv("JUMPSELLER_AUTHTOKEN", ""),
		JumpsellerTimeout:   getEnvAsDuration("JUMPSELLER_TIMEOUT", 30*time.Second),
		JumpsellerRateLimit: getEnvAsInt("JUMPSELLER_RATE_LIMIT", 4),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),

		ETLBatchSize:       getEnvAsInt("ETL_BATCH_SIZE", 400),
		ExistenceChunkSize: getEnvAsInt("ETL_EXISTENCE_CHUNK", 30),
		ETLTestRunLimit:    getEnvAsInt("ETL_TEST_RUN_LIMIT", 10),

		CleanWorkers: getEnvAsInt("CLEAN_WORKERS", 10),

		NATSUrl: getEnv("NATS_URL", ""),
	}

	if config.FirebaseProjectID == "" {
		log.Fatal("FIREBASE_PROJECT_ID is required")
	}
	if config.JumpsellerLogin == "" || config.JumpsellerAuthToken == "" {
		log.Println("Warning: JUMPSELLER_LOGIN/JUMPSELLER_AUTHTOKEN not set, upstream endpoints will fail")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
