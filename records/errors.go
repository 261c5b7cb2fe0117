package records

import "errors"

// Errors returned by the records package.
var (
	// ErrReadOnly is returned when editing a primary key or auto-increment column.
	ErrReadOnly = errors.New("column is read-only")

	// ErrInvalidDate is returned when a date column is given text that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrUnknownColumn is returned when a column name is not part of the record.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrEmptyData is returned when an operation needs a current record but the set is empty.
	ErrEmptyData = errors.New("record set is empty")

	// ErrInvalidQuery is returned when a find expression cannot be parsed.
	ErrInvalidQuery = errors.New("invalid query")
)
