package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reward-core/pkg/errno"
)

// ErrorBody is the error shape of the admin API: {"error": "...", "code": 20102}
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// Success writes data as a bare JSON body, the way the admin API does
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(http.StatusOK, data)
}

// Created is Success with 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error maps err onto an HTTP status and writes the error body
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.AbortWithStatusJSON(StatusOf(err), ErrorBody{Error: msg, Code: code})
}

// Unauthorized writes the DRF style 401 body
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided or are invalid."})
}

// StatusOf picks the HTTP status for an errno
func StatusOf(err error) int {
	switch {
	case errors.Is(err, errno.ErrNotFound), errors.Is(err, errno.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errno.ErrUnauthorized), errors.Is(err, errno.ErrNoSession), errors.Is(err, errno.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, errno.ErrAlreadyExecuted), errors.Is(err, errno.ErrExecutionLocked):
		return http.StatusConflict
	case errors.Is(err, errno.InternalServerError):
		return http.StatusInternalServerError
	}
	code, _ := errno.Decode(err)
	if code == errno.InternalServerError.Code {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
