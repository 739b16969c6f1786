package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/miniblog/models"
)

// Business error codes, grouped by HTTP status.
const (
	CodeValidation  = 40000
	CodeAuth        = 40100
	CodeForbidden   = 40300
	CodeNotFound    = 40400
	CodeConflict    = 40900
	CodeInternal    = 50000
	CodeUnavailable = 50300
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Success writes {"success": true} merged with the given fields.
func Success(ctx *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	ctx.JSON(http.StatusOK, body)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message, Code: code})
}

// Fail maps err onto a status and business code. Internal details are logged, never returned.
func Fail(ctx *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status, code := StatusFor(appErr.Kind)
	if status >= http.StatusInternalServerError {
		Logger.Error("request failed",
			zap.String("request_id", ctx.GetString(RequestIDKey)),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
	}
	Error(ctx, status, code, appErr.Message)
}

// StatusFor returns the HTTP status and business code for an error kind.
func StatusFor(kind models.ErrorKind) (int, int) {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case models.KindAuth:
		return http.StatusUnauthorized, CodeAuth
	case models.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case models.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case models.KindConflict:
		return http.StatusConflict, CodeConflict
	case models.KindStoreUnavailable:
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
