package main

import (
	"net/http"
	"strings"

	"taskman/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenCookie = "access_token"

func setupRoutes(r *gin.Engine) {
	r.Use(errorMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is running...")
	})

	auth := r.Group("/api/auth")
	auth.POST("/login", loginHandler)
	auth.POST("/logout", authMiddleware(), logoutHandler)

	user := r.Group("/api/user")
	user.POST("/register", registerHandler)
	user.PUT("/edit", authMiddleware(), editUserHandler)
	user.GET("/profile", authMiddleware(), profileHandler)

	task := r.Group("/api/task", authMiddleware())
	task.POST("/create", createTaskHandler)
	task.GET("/", listTasksHandler)
	task.PUT("/:taskId", updateTaskHandler)
	task.DELETE("/:taskId", deleteTaskHandler)

	r.GET("/ws", authMiddleware(), wsHandler)
}

// tokenFromRequest reads the session token from the auth cookie, falling
// back to a Bearer Authorization header for non-browser clients.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// authMiddleware guards protected routes: the token must be present,
// well-formed, not blacklisted and carry a valid signature and expiry.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.Error(authError(http.StatusForbidden, "Logged out, please login!"))
			c.Abort()
			return
		}
		if strings.Count(tokenString, ".") != 2 {
			c.Error(validationError("Invalid token format"))
			c.Abort()
			return
		}
		if isTokenBlacklisted(tokenString) {
			c.Error(authError(http.StatusUnauthorized, "You are logged out, please login to continue"))
			c.Abort()
			return
		}
		user, err := parseSessionToken(tokenString)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		c.Set("userID", user.ID)
		c.Set("userEmail", user.Email)
		c.Set("userName", user.Name)
		c.Set("sessionToken", tokenString)
		c.Next()
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validationError(err.Error()))
		return
	}
	user, err := RegisterUser(req.Name, req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"data":    gin.H{"name": user.Name, "email": user.Email},
		"message": "Thank you for registering. Your account has been created successfully.",
	})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validationError(err.Error()))
		return
	}
	if err := validateEmail(strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		c.Error(err)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		c.Error(err)
		return
	}
	// A live session blocks a second login; a blacklisted or unparsable
	// leftover token does not.
	if existing := tokenFromRequest(c); existing != "" {
		if _, err := parseSessionToken(existing); err == nil && !isTokenBlacklisted(existing) {
			c.Error(conflictError(http.StatusForbidden, "User already logged in. Please logout first."))
			return
		}
	}
	user, err := Authenticate(req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	tokenString, err := signSessionToken(user)
	if err != nil {
		c.Error(err)
		return
	}
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(accessTokenCookie, tokenString, int(sessionTTL.Seconds()), "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    gin.H{"id": user.ID, "email": user.Email, "name": user.Name},
		"token":   tokenString,
		"message": "Login Successful",
	})
}

func logoutHandler(c *gin.Context) {
	tokenString := c.GetString("sessionToken")
	if tokenString == "" {
		c.Error(authError(http.StatusUnauthorized, "Unauthorized request"))
		return
	}
	if err := blacklistToken(tokenString); err != nil {
		c.Error(err)
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "You have successfully logged out",
	})
}

func editUserHandler(c *gin.Context) {
	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(validationError(err.Error()))
		return
	}
	if req.Name == nil && req.Password == nil {
		c.Error(validationError("name or password is required"))
		return
	}
	var user models.User
	if err := db.First(&user, "id = ?", c.GetString("userID")).Error; err != nil {
		c.Error(notFoundError("User not found"))
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			c.Error(err)
			return
		}
		user.Name = name
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			c.Error(err)
			return
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.Error(err)
			return
		}
		user.PasswordHash = hashedPassword
	}
	if err := db.Save(&user).Error; err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    []models.User{user},
		"message": "User profile updated successfully.",
	})
}

func profileHandler(c *gin.Context) {
	var user models.User
	if err := db.First(&user, "id = ?", c.GetString("userID")).Error; err != nil {
		c.Error(notFoundError("User not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"data":    []models.User{user},
		"message": "User fetched successfully.",
	})
}
