package routes

import (
	"hemera-academy/handlers/courses"

	"github.com/gin-gonic/gin"
)

func CoursesRoutes(r *gin.Engine) {
	courseRoutes := r.Group("/courses")
	{
		courseRoutes.GET("/", courses.GetCourses)
		// /next must be registered before the catch-all id-or-slug param
		courseRoutes.GET("/next", courses.GetNextCourse)
		courseRoutes.GET("/:idOrSlug", courses.GetCourse)
	}
}
