package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AuthError indicates that the API rejected the credentials.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.Code, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code    int
	Method  string
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d on %s %s", e.Code, e.Method, e.Path)
	}
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Code, e.Method, e.Path, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// errorResponse is the error body returned by the service.
type errorResponse struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func newStatusError(code int, method, path string, body []byte) *StatusError {
	se := &StatusError{Code: code, Method: method, Path: path}

	var er errorResponse
	if json.Unmarshal(body, &er) == nil {
		switch {
		case er.Message != "":
			se.Message = er.Message
		case er.Error != "":
			se.Message = er.Error
		}
		if len(er.Errors) > 0 {
			parts := make([]string, 0, len(er.Errors))
			for field, msg := range er.Errors {
				parts = append(parts, field+": "+msg)
			}
			sort.Strings(parts)
			se.Message = strings.TrimSpace(se.Message + " " + strings.Join(parts, "; "))
		}
		return se
	}

	se.Message = strings.TrimSpace(string(body))
	if len(se.Message) > 200 {
		se.Message = se.Message[:200]
	}
	return se
}
