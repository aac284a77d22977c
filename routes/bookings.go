package routes

import (
	"hemera-academy/handlers/bookings"
	"hemera-academy/middleware"

	"github.com/gin-gonic/gin"
)

func BookingsRoutes(r *gin.Engine) {
	bookingRoutes := r.Group("/bookings")
	bookingRoutes.Use(middleware.JWTAuth())
	{
		bookingRoutes.GET("/", bookings.GetUserBookings)
		bookingRoutes.GET("/stats", bookings.GetBookingStats)
		bookingRoutes.GET("/:bookingId", bookings.GetBookingDetail)
		bookingRoutes.DELETE("/:bookingId", bookings.CancelBooking)
	}
}
