package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// InvalidIdentifierError reports a malformed identifier argument and which
// field it arrived in.
type InvalidIdentifierError struct {
	Field  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Field, e.Reason)
}

// Identifier parses and normalizes a raw user identifier. Identifiers are
// UUID strings; the normalized form is the canonical lowercase rendering.
// Validation happens before any cache or store access, so a failure here
// costs nothing but the parse.
func Identifier(field, raw string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uuid.Nil, &InvalidIdentifierError{Field: field, Reason: "empty"}
	}

	for _, r := range trimmed {
		if !unicode.IsPrint(r) {
			return uuid.Nil, &InvalidIdentifierError{Field: field, Reason: "contains non-printable characters"}
		}
	}

	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, &InvalidIdentifierError{Field: field, Reason: "not a valid UUID"}
	}

	if id == uuid.Nil {
		return uuid.Nil, &InvalidIdentifierError{Field: field, Reason: "nil UUID"}
	}

	return id, nil
}
