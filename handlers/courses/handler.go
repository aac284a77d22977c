package courses

import (
	"errors"
	"net/http"
	"strconv"

	"hemera-academy/catalog"
	"hemera-academy/db"
	"hemera-academy/ledger"
	"hemera-academy/models"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
)

// @Summary List courses
// @Description Return published public courses, optionally filtered by search text and price range
// @Tags courses
// @Accept json
// @Produce json
// @Param q query string false "Search in title and description"
// @Param minPrice query int false "Minimum price in cents"
// @Param maxPrice query int false "Maximum price in cents"
// @Param available query bool false "Only courses with free seats"
// @Success 200 {array} models.Course
// @Failure 500 {object} map[string]string "error: Error fetching courses"
// @Router /courses [get]
func GetCourses(c *gin.Context) {
	query := db.DB.Where("is_published = ? AND is_public = ?", true, true)

	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}
	if minPrice := c.Query("minPrice"); minPrice != "" {
		if v, err := strconv.ParseInt(minPrice, 10, 64); err == nil {
			query = query.Where("price >= ?", v)
		}
	}
	if maxPrice := c.Query("maxPrice"); maxPrice != "" {
		if v, err := strconv.ParseInt(maxPrice, 10, 64); err == nil {
			query = query.Where("price <= ?", v)
		}
	}
	if c.Query("available") == "true" {
		// Courses with free seats: unlimited capacity, or fewer PAID
		// bookings than capacity.
		query = query.Where(
			"capacity IS NULL OR capacity > (SELECT count(*) FROM bookings WHERE bookings.course_id = courses.id AND bookings.payment_status = ?)",
			models.PaymentPaid,
		)
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		utils.LogError(err, "Error fetching courses in GetCourses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching courses"})
		return
	}

	c.JSON(http.StatusOK, courses)
}

// @Summary Course detail
// @Description Return one published course by id or slug, with remaining seats when capacity is set
// @Tags courses
// @Accept json
// @Produce json
// @Param idOrSlug path string true "Course id or slug"
// @Success 200 {object} map[string]interface{} "course + availableSpots"
// @Failure 404 {object} map[string]string "error: Course not found"
// @Router /courses/{idOrSlug} [get]
func GetCourse(c *gin.Context) {
	course, err := catalog.FindBookable(c.Param("idOrSlug"))
	if err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return
		}
		utils.LogError(err, "Error resolving course in GetCourse")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the course"})
		return
	}

	response := gin.H{"course": course}
	if course.Capacity != nil {
		seats, err := ledger.PaidSeats(course.ID)
		if err != nil {
			utils.LogError(err, "Error counting seats in GetCourse")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the course"})
			return
		}
		available := int64(*course.Capacity) - seats
		if available < 0 {
			available = 0
		}
		response["availableSpots"] = available
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Next upcoming course
// @Description Return the earliest published course scheduled in the future
// @Tags courses
// @Accept json
// @Produce json
// @Success 200 {object} models.Course
// @Failure 404 {object} map[string]string "error: No upcoming course"
// @Router /courses/next [get]
func GetNextCourse(c *gin.Context) {
	course, err := catalog.NextUpcoming()
	if err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No upcoming course"})
			return
		}
		utils.LogError(err, "Error fetching next course in GetNextCourse")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the next course"})
		return
	}

	c.JSON(http.StatusOK, course)
}
