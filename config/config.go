package config

import (
	"errors"
	"os"
	"strings"
)

// Config collects every environment-provided setting the server needs.
// Components receive values from here at construction instead of
// reading the environment themselves.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string

	JWTSecret          string
	RefreshTokenSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	FromEmail string

	FrontendURL  string
	EmailDomain  string
	AllowOrigins []string
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getenv("APP_ENV", "production"),
		Port: getenv("APP_PORT", "8080"),

		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		SMTPHost:  getenv("SMTP_HOST", "smtp.sendgrid.net"),
		SMTPPort:  getenv("SMTP_PORT", "587"),
		SMTPUser:  getenv("SMTP_USER", "apikey"),
		SMTPPass:  os.Getenv("SENDGRID_API_KEY"),
		FromEmail: os.Getenv("FROM_EMAIL"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		EmailDomain: getenv("EMAIL_DOMAIN", "josephscollege.ac.in"),
	}

	origins := getenv("ALLOW_ORIGINS", cfg.FrontendURL)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters; generate one with: openssl rand -base64 32")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, errors.New("REFRESH_TOKEN_SECRET is required")
	}
	return cfg, nil
}
