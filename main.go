package main

import (
	"log"
	"time"

	"hemera-academy/config"
	"hemera-academy/db"
	_ "hemera-academy/docs"
	"hemera-academy/handlers/auth"
	"hemera-academy/handlers/payments"
	"hemera-academy/middleware"
	"hemera-academy/payment"
	"hemera-academy/routes"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
)

// @title Hemera Academy API
// @version 1.0
// @description Course booking and payment API for Hemera Academy
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = utils.LogWriter()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	db.InitDB(cfg.DatabaseURL)

	payment.Init(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	payments.Init(cfg.AppBaseURL)
	auth.Init(cfg.JWTExpireHrs)
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		utils.LogInfo("Stripe credentials missing: checkout will answer 503 until they are provisioned")
	}

	// 10 checkout initiations per user per minute
	var limiter middleware.RateLimiter
	redisLimiter, err := middleware.NewRedisLimiter(cfg.RedisURL, 10, time.Minute)
	if err != nil {
		utils.LogError(err, "Rate limiter disabled: could not reach Redis")
	} else if redisLimiter != nil {
		limiter = redisLimiter
	}

	r := routes.SetupRouter(limiter)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Error starting the server: ", err)
	}
}
