package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

var errNoFiles = NewBadRequestError("no files uploaded", errors.New(`send one or more files in the multipart field "files"`))

func httpErrorCode(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	}
	return "HTTP_ERROR"
}

func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		out := &APIError{Status: he.Code, Code: httpErrorCode(he.Code), Message: fmt.Sprintf("%v", he.Message)}
		if he.Internal != nil {
			out.Details = he.Internal.Error()
		}
		return out
	}
	return &APIError{Status: http.StatusInternalServerError, Code: "UNKNOWN_ERROR", Message: "An unexpected error occurred", Details: err.Error()}
}

// errorHandler answers API routes with an APIError body and browser routes
// with the upload page showing the message.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	apiErr := toAPIError(err)
	if apiErr.Status >= 500 {
		s.logger.Error("request failed", "path", c.Request().URL.Path, "error", err)
	}
	if !strings.HasPrefix(c.Request().URL.Path, "/api/") && c.Request().Method != http.MethodHead {
		msg := apiErr.Message
		if apiErr.Details != "" {
			msg += ": " + apiErr.Details
		}
		if rerr := c.Render(apiErr.Status, "index.html", indexView{Title: title, Error: msg, Limit: s.opt.UploadLimit}); rerr == nil {
			return
		}
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
