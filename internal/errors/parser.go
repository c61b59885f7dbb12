package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a client-safe description of an unexpected error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError classifies storage and infrastructure errors that reached the
// handler without a domain mapping. Raw driver text is never returned.
func ParseError(err error, resource string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: notFoundMessage(resource)}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint"):
		return parseDuplicateKeyError(lower)
	case strings.Contains(lower, "foreign key constraint"):
		if strings.Contains(lower, "still referenced") {
			return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "The " + resource + " is still in use and cannot be deleted"}
		}
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: "A referenced record does not exist"}
	case strings.Contains(lower, "violates not-null constraint") || strings.Contains(lower, "not null constraint"):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: "A required field is missing"}
	case strings.Contains(lower, "check constraint"):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationInvalidInput, Message: "A field has an invalid value"}
	case strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout"):
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalExternalAPI, Message: "A backing service is unavailable, please try again later"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Failed to process " + resource + ", please try again later"}
}

func parseDuplicateKeyError(lower string) ErrorInfo {
	switch {
	case strings.Contains(lower, "email"):
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "Email is already registered"}
	case strings.Contains(lower, "code"):
		return ErrorInfo{Status: http.StatusConflict, Code: CouponCodeExists, Message: "Coupon code already exists"}
	case strings.Contains(lower, "label"):
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "Variant labels must be unique per product"}
	}
	return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "Record already exists"}
}

func notFoundMessage(resource string) string {
	if resource == "" {
		return "Not found"
	}
	return strings.ToUpper(resource[:1]) + resource[1:] + " not found"
}

// ParseAndRespond classifies err and writes the matching response.
func ParseAndRespond(c interface {
	AbortWithStatusJSON(int, interface{})
}, err error, resource string) {
	info := ParseError(err, resource)
	c.AbortWithStatusJSON(info.Status, ErrorResponse{Error: info.Code, Message: info.Message})
}
