package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

// SuccessWithPagination writes a success response with pagination metadata.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int) {
	p := NewPage(page, limit)
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
			Pagination: &Pagination{
				Page:       p.Page,
				Limit:      p.Limit,
				TotalItems: totalItems,
				TotalPages: TotalPages(totalItems, p.Limit),
			},
		},
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error: &ErrorInfo{
			Code:    errCode,
			Message: message,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: NowISO(),
		},
	})
}

// RespondError maps a service error onto the envelope. Sentinel errors keep
// their code; the wrapped message is exposed for client errors only.
func RespondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, ErrNotFound.Error(), err.Error())
	case errors.Is(err, ErrDuplicate):
		Error(c, http.StatusConflict, ErrDuplicate.Error(), err.Error())
	case errors.Is(err, ErrInvalidInput):
		Error(c, http.StatusBadRequest, ErrInvalidInput.Error(), err.Error())
	case errors.Is(err, ErrInvalidState):
		Error(c, http.StatusUnprocessableEntity, ErrInvalidState.Error(), err.Error())
	case errors.Is(err, ErrUnsupportedFile):
		Error(c, http.StatusBadRequest, ErrUnsupportedFile.Error(), err.Error())
	case errors.Is(err, ErrForbidden):
		Error(c, http.StatusForbidden, ErrForbidden.Error(), "You do not have access to this resource")
	case errors.Is(err, ErrInvalidCredential):
		Error(c, http.StatusUnauthorized, ErrInvalidCredential.Error(), "Invalid email or password")
	case errors.Is(err, ErrInactiveAccount):
		Error(c, http.StatusForbidden, ErrInactiveAccount.Error(), "Account is inactive")
	case errors.Is(err, ErrInvalidToken):
		Error(c, http.StatusUnauthorized, ErrInvalidToken.Error(), "Invalid or expired token")
	case errors.Is(err, ErrRateLimited):
		Error(c, http.StatusTooManyRequests, ErrRateLimited.Error(), "Too many attempts, try again later")
	case errors.Is(err, ErrUnavailable):
		Error(c, http.StatusServiceUnavailable, ErrUnavailable.Error(), err.Error())
	default:
		log.Error().Err(err).Str("request_id", getRequestID(c)).Msg(fallback)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// NowISO returns the current UTC time in ISO 8601 format.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
