// Package errors defines domain-level error values shared across services.
package errors

import "fmt"

// DomainError is an application error with a stable machine-readable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
