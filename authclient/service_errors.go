package authclient

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Machine-readable error codes carried by the backend's error envelope.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeNetworkError       = "NETWORK_ERROR"
	CodeServerError        = "SERVER_ERROR"
	CodeTimeout            = "TIMEOUT"
)

// ServiceError is a failure from the credential-issuing service, carrying
// an HTTP-like status and a machine-readable code. Transport-level failures
// are represented with Status 0 and a NETWORK_ERROR or TIMEOUT code.
type ServiceError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth service: %s (%d %s)", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("auth service: %s (%s)", e.Code, e.Message)
}

// IsAuthRejection reports whether err is a 401/403-class authentication
// rejection. These are terminal: retrying cannot help.
func IsAuthRejection(err error) bool {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	switch svcErr.Code {
	case CodeInvalidCredentials, CodeNotAuthenticated, CodeTokenExpired:
		return true
	}
	return svcErr.Status == http.StatusUnauthorized || svcErr.Status == http.StatusForbidden
}

// IsTransient reports whether err is worth retrying: network trouble,
// timeouts and 5xx-class server failures.
func IsTransient(err error) bool {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	switch svcErr.Code {
	case CodeNetworkError, CodeServerError, CodeTimeout:
		return true
	}
	return svcErr.Status >= http.StatusInternalServerError
}
