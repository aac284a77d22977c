package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hemera-academy/db"
	"hemera-academy/models"
	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// defaultTokenHours is the JWT lifetime handed out at login.
var defaultTokenHours = 72

// Init sets the default JWT lifetime in hours.
func Init(hours int) {
	if hours > 0 {
		defaultTokenHours = hours
	}
}

// @Summary Create a new user
// @Description Register a new account with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param user body models.UserLogin true "User credentials"
// @Success 201 {object} map[string]interface{} "message: User created successfully, email: user email"
// @Failure 400 {object} map[string]interface{} "error: Invalid input"
// @Failure 409 {object} map[string]interface{} "error: Email already exists"
// @Failure 500 {object} map[string]interface{} "error: Error message"
// @Router /register [post]
func Register(c *gin.Context) {
	var user models.User

	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input: " + err.Error(),
		})
		return
	}

	if user.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The email cannot be empty"})
		return
	}

	if !utils.ValidateEmail(user.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	if user.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The password cannot be empty"})
		return
	}

	if len(user.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The password must contain at least 6 characters"})
		return
	}

	hasLower := strings.ContainsAny(user.Password, "abcdefghijklmnopqrstuvwxyz")
	hasUpper := strings.ContainsAny(user.Password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	hasDigit := strings.ContainsAny(user.Password, "0123456789")

	if !hasLower || !hasUpper || !hasDigit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The password must contain at least one lowercase, one uppercase and one digit"})
		return
	}

	var existingUser models.User
	if err := db.DB.Where("email = ?", user.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "This email is already used"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error when checking the email existence"})
		return
	}

	passwordHash, err := hashPassword(user.Password)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Error when hashing the password"})
		return
	}

	user.Password = passwordHash
	user.Role = models.UserRole

	result := db.DB.Create(&user)
	if result.Error != nil {
		utils.LogError(result.Error, "Error creating user in Register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the user"})
		return
	}

	utils.LogSuccess("User created successfully in Register")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"email":   user.Email,
	})
}

// @Summary User login
// @Description Authenticate with credentials and receive a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param user body models.UserLogin true "User credentials"
// @Success 200 {object} map[string]interface{} "token: JWT, user: user profile"
// @Failure 400 {object} map[string]interface{} "error: Invalid input"
// @Failure 401 {object} map[string]interface{} "error: Wrong credentials"
// @Failure 422 {object} map[string]interface{} "error: JWT not generated"
// @Router /login [post]
func Login(c *gin.Context) {
	var inputLogin models.UserLogin

	if err := c.ShouldBindJSON(&inputLogin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input: " + err.Error(),
		})
		return
	}

	if inputLogin.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The email cannot be empty"})
		return
	}

	if !utils.ValidateEmail(inputLogin.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	if inputLogin.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The password cannot be empty"})
		return
	}

	var user models.User
	result := db.DB.Where("email = ?", inputLogin.Email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong credentials"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	if !samePassword(inputLogin.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong credentials"})
		return
	}

	hours := defaultTokenHours
	if h := c.GetHeader("X-Token-Hours"); h != "" {
		if parsed, err := strconv.Atoi(h); err == nil && parsed > 0 && parsed <= 168 {
			hours = parsed
		}
	}

	token, err := utils.GenerateJWT(user, hours)
	if err != nil {
		utils.LogErrorWithUser(user.ID, err, "JWT not generated in Login")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "JWT not generated"})
		return
	}

	utils.LogSuccessWithUser(user.ID, "User logged in successfully in Login")
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

func hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func samePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
