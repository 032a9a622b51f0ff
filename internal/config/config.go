// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values halt startup when missing;
// tuning knobs carry defaults matching a single-restaurant deployment.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AMQPURL string // RabbitMQ URL for the activity feed (empty disables it)

	HeartbeatIntervalSec int // seconds between heartbeat sweeps
	EvictionMultiplier   int // silence threshold as a multiple of the interval
	SendQueueSize        int // per-connection outbound queue capacity

	CanvasWidth  float64 // pixel extent used to normalize legacy table coordinates
	CanvasHeight float64
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AMQPURL: envStr("AMQP_URL", ""),

		HeartbeatIntervalSec: envInt("HEARTBEAT_INTERVAL_SEC", 30),
		EvictionMultiplier:   envInt("HEARTBEAT_EVICTION_MULTIPLIER", 2),
		SendQueueSize:        envInt("WS_SEND_QUEUE_SIZE", 64),

		CanvasWidth:  envFloat("CANVAS_WIDTH", 800),
		CanvasHeight: envFloat("CANVAS_HEIGHT", 600),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
