package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App regroups every environment variable the server consumes.
type App struct {
	// DB
	DatabaseURL string `envconfig:"DB_URL" required:"true"`
	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHrs int    `envconfig:"JWT_EXPIRE_HRS" default:"72"`
	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	// Public base URL used to build Stripe return URLs
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`
	// Redis, optional: the checkout rate limiter is disabled when empty
	RedisURL string `envconfig:"REDIS_URL"`
	// Network
	Port string `envconfig:"PORT" default:"8080"`
}

// Load reads the .env file when present, then processes the environment.
func Load() (App, error) {
	_ = godotenv.Load()

	var c App
	err := envconfig.Process("", &c)
	return c, err
}
