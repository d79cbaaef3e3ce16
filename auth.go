package main

import (
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"taskman/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL bounds both the JWT expiry and the blacklist retention window.
const sessionTTL = 24 * time.Hour

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n < 5 || n > 30 {
		return validationError("name must be between 5 and 30 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRE.MatchString(email) {
		return validationError("a valid email is required")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return validationError("password must be at least 6 characters")
	}
	return nil
}

// RegisterUser validates the registration input, hashes the password and
// persists the new account. The email must not be taken.
func RegisterUser(name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	// pre-check existing (optimistic)
	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, conflictError(http.StatusForbidden, "User already exists")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: hashedPassword}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return nil, conflictError(http.StatusForbidden, "User already exists")
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks email+password and returns the matching user. The
// error is identical for unknown email and wrong password.
func Authenticate(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, authError(http.StatusUnauthorized, "Wrong email or password!")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, authError(http.StatusUnauthorized, "Wrong email or password!")
	}
	return &user, nil
}

// sessionUser is the identity carried by a session token.
type sessionUser struct {
	ID    string
	Email string
	Name  string
}

func signSessionToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(sessionTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}

func parseSessionToken(tokenString string) (*sessionUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, authError(http.StatusUnauthorized, "Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authError(http.StatusUnauthorized, "Invalid or expired token")
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, authError(http.StatusUnauthorized, "Invalid or expired token")
	}
	return &sessionUser{ID: sub, Email: email, Name: name}, nil
}

// blacklistToken revokes a session token. Revoking an already revoked
// token is a no-op.
func blacklistToken(tokenString string) error {
	rec := models.RevokedToken{Token: tokenString}
	if err := db.Create(&rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	return nil
}

// isTokenBlacklisted reports whether the token was revoked within the
// blacklist window. Older rows are treated as expired even if the sweep
// has not removed them yet.
func isTokenBlacklisted(tokenString string) bool {
	var rec models.RevokedToken
	cutoff := time.Now().Add(-sessionTTL)
	err := db.Where("token = ? AND created_at > ?", tokenString, cutoff).First(&rec).Error
	return err == nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "UNIQUE constraint") || strings.Contains(s, "already exists")
}
