package store

import (
	"errors"
	"fmt"
)

// AuthError indicates the admin credential exchange was rejected.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("store auth failed (status %d): %s", e.Status, e.Detail)
}

// NotFoundError indicates a record or collection does not exist.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("collection %q not found", e.Collection)
	}
	return fmt.Sprintf("record %s/%s not found", e.Collection, e.ID)
}

// RequestError indicates any other non-2xx response from the store.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("store request failed (status %d): %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
