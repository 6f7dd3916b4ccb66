package domain

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrNonNumericField   = errors.New("cannot perform numeric operation on field")
	ErrEmptyScope        = errors.New("empty scope")
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrPercentileRange   = errors.New("percentile must be between 0 and 100")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownScope      = errors.New("unknown scope")
	ErrBusy              = errors.New("a previous request is still being processed")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrEmptyDataset      = errors.New("dataset is empty")
	ErrInvalidFieldKind  = errors.New("invalid field kind")
	ErrMissingFieldName  = errors.New("field name is required")
	ErrEmptyFieldCatalog = errors.New("field catalog has no fields")
)

// UserMessage renders err as a chat-facing "Error: ..." line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + capitalize(err.Error())
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
