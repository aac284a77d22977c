package routes

import (
	"hemera-academy/handlers/payments"
	"hemera-academy/middleware"

	"github.com/gin-gonic/gin"
)

func PaymentsRoutes(r *gin.Engine, limiter middleware.RateLimiter) {
	checkoutRoutes := r.Group("/checkout")
	checkoutRoutes.Use(middleware.JWTAuth(), middleware.RateLimit(limiter, "checkout"))
	{
		checkoutRoutes.POST("/", payments.CreateCheckout)
		checkoutRoutes.POST("/session", payments.CreateCheckoutSession)
		checkoutRoutes.GET("/verify", payments.VerifyCheckoutSession)
	}

	r.POST("/payment/confirm", middleware.JWTAuth(), payments.ConfirmPayment)

	// Signed by Stripe, no user session
	r.POST("/webhook/payment", payments.PaymentWebhook)
}
