package service

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError marks input the caller can fix: a malformed identifier, a
// wrong body shape, a quantity below one. Nothing was mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a well-formed identifier with no matching record.
// Nothing was mutated.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

func notFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// parseID turns a caller-supplied identifier into an ObjectID. kind names the
// resource ("cart", "product") in the validation message.
func parseID(kind, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, validationf("invalid %s ID format", kind)
	}
	return id, nil
}
