package routes

import (
	"hemera-academy/handlers/auth"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine) {
	r.POST("/register", auth.Register)
	r.POST("/login", auth.Login)
}
