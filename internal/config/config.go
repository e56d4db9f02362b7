package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/models"
)

const (
	DefaultSessionLifetime   = 900 * time.Second
	DefaultPasswordMinLength = 12
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET    string
	KAFKA_ADDRESS string

	DEBUG         bool
	ALLOWED_HOSTS []string

	// Opaque key slots, loaded from the environment but never interpreted here.
	STRIPE_SECRET_KEY     string
	GOOGLE_MAPS_API_KEY   string
	PAYMENT_GATEWAY_TOKEN string

	SESSION_LIFETIME    time.Duration
	PASSWORD_MIN_LENGTH int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET:    os.Getenv("JWT_SECRET"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		DEBUG: os.Getenv("DEBUG") == "True",

		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		GOOGLE_MAPS_API_KEY:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		PAYMENT_GATEWAY_TOKEN: os.Getenv("PAYMENT_GATEWAY_TOKEN"),

		SESSION_LIFETIME:    DefaultSessionLifetime,
		PASSWORD_MIN_LENGTH: DefaultPasswordMinLength,
	}

	if hosts := os.Getenv("ALLOWED_HOSTS"); hosts != "" {
		config.ALLOWED_HOSTS = strings.Split(hosts, ",")
	} else {
		config.ALLOWED_HOSTS = []string{"127.0.0.1", "localhost"}
	}

	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid SESSION_LIFETIME %q", v)
		}
		config.SESSION_LIFETIME = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("PASSWORD_MIN_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PASSWORD_MIN_LENGTH %q", v)
		}
		config.PASSWORD_MIN_LENGTH = n
	}

	return config, nil
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.AuditLog{},
		&models.LoginAttempt{},
		&models.Session{},
	)
}
