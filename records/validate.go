package records

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted text form of a date column.
const DateLayout = "2006-01-02"

// IsDirty reports whether the text in a field differs from the value the
// field was rendered with.
func IsDirty(initial Value, text string) bool {
	return FormatValue(initial) != text
}

// ParseDate normalizes the text of a date field. Blank text is NULL.
func ParseDate(text string) (Value, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if _, err := time.Parse(DateLayout, text); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, text)
	}
	return text, nil
}

// sameValue compares a stored value with a normalized edit by their
// displayed text, so NULL and "" are the same edit.
func sameValue(current, next Value) bool {
	return FormatValue(current) == FormatValue(next)
}
