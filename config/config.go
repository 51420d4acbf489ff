package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Market is one configured search scope, processed as an independent unit.
type Market struct {
	Key       string
	SearchURL string
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Markets []Market

	// Plausibility bounds applied to every extraction, market-invariant.
	MinPrice int
	MaxPrice int
	MinSqm   int
	MaxSqm   int

	MaxPages       int
	PageSleepMs    int
	AdSleepMs      int
	MaxConcurrency int
	MaxRetries     int

	DataDir   string
	UserAgent string
	ChromeBin string

	StorePostgres    bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Markets: parseMarkets(getEnv("MARKETS",
			"oslo=https://www.finn.no/realestate/lettings/search.html?location=0.20061")),

		MinPrice: getEnvInt("MIN_PRICE_NOK", 2000),
		MaxPrice: getEnvInt("MAX_PRICE_NOK", 100000),
		MinSqm:   getEnvInt("MIN_SQM", 10),
		MaxSqm:   getEnvInt("MAX_SQM", 400),

		MaxPages:       getEnvInt("MAX_PAGES", 40),
		PageSleepMs:    getEnvInt("PAGE_SLEEP_MS", 1500),
		AdSleepMs:      getEnvInt("AD_SLEEP_MS", 800),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		DataDir:   getEnv("DATA_DIR", "./data"),
		UserAgent: getEnv("USER_AGENT", "RentalRadarBot/1.0"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		StorePostgres:    getEnvBool("STORE_POSTGRES", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "radar"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "radar123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// parseMarkets decodes "key=url;key=url" pairs. Search URLs carry their own
// query strings, so the pair separator is a semicolon rather than a comma.
func parseMarkets(val string) []Market {
	var markets []Market
	for _, pair := range strings.Split(val, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("[config] Skipping malformed market entry %q", pair)
			continue
		}
		markets = append(markets, Market{Key: parts[0], SearchURL: parts[1]})
	}
	return markets
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
