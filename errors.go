package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiError is the service-layer error type: a status code plus a message
// safe to show to the caller. Anything else that reaches errorMiddleware
// is reported as a generic 500.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func validationError(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

func authError(status int, message string) *apiError {
	return &apiError{status: status, message: message}
}

func conflictError(status int, message string) *apiError {
	return &apiError{status: status, message: message}
}

func notFoundError(message string) *apiError {
	return &apiError{status: http.StatusNotFound, message: message}
}

// errorMiddleware is the single translation point from service errors to
// HTTP responses. Handlers record failures with c.Error and return; this
// middleware renders the uniform envelope afterwards.
func errorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "Internal Server Error"
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			status = apiErr.status
			message = apiErr.message
		}
		c.JSON(status, gin.H{"success": false, "message": message})
	}
}
