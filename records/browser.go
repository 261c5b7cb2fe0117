package records

import (
	"context"
	"fmt"
	"log"
)

// Saver persists a whole record. Implementations write every column of the
// row identified by the record's key.
type Saver interface {
	SaveRecord(ctx context.Context, rec *Record) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, rec *Record) error

// SaveRecord calls f(ctx, rec).
func (f SaverFunc) SaveRecord(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

// Options tune field handling for one table.
type Options struct {
	// DateColumns are validated as dates in addition to DATE typed columns.
	DateColumns []string
	// Verbose logs every field decision.
	Verbose bool
}

// Browser is a cursor over a record set with write-through editing.
type Browser struct {
	schema  *Schema
	records []*Record
	saver   Saver
	dates   map[string]bool
	verbose bool
	index   int
}

// NewBrowser creates a browser positioned on the first record.
func NewBrowser(schema *Schema, recs []*Record, saver Saver, opts Options) *Browser {
	if schema == nil {
		schema = NewSchema("", nil)
	}
	b := &Browser{
		schema:  schema,
		records: recs,
		saver:   saver,
		dates:   make(map[string]bool),
		verbose: opts.Verbose,
	}
	for _, c := range schema.Columns {
		if c.IsDate() {
			b.dates[c.Field] = true
		}
	}
	for _, c := range opts.DateColumns {
		b.dates[c] = true
	}
	if b.verbose {
		log.Printf("Read-only fields of %s: %v", schema.Table, schema.ReadOnly())
	}
	return b
}

// Schema returns the schema the browser was opened with.
func (b *Browser) Schema() *Schema { return b.schema }

// Len returns the number of records.
func (b *Browser) Len() int { return len(b.records) }

// Index returns the cursor position.
func (b *Browser) Index() int { return b.index }

// Records returns the backing record set.
func (b *Browser) Records() []*Record { return b.records }

// Current returns the record under the cursor, or nil for an empty set.
func (b *Browser) Current() *Record {
	if len(b.records) == 0 {
		return nil
	}
	return b.records[b.index]
}

// CanPrevious reports whether Previous would move the cursor.
func (b *Browser) CanPrevious() bool { return b.index > 0 }

// CanNext reports whether Next would move the cursor.
func (b *Browser) CanNext() bool { return b.index < len(b.records)-1 }

// Next moves forward by one. It reports whether the cursor moved.
func (b *Browser) Next() bool {
	if !b.CanNext() {
		return false
	}
	b.index++
	return true
}

// Previous moves back by one. It reports whether the cursor moved.
func (b *Browser) Previous() bool {
	if !b.CanPrevious() {
		return false
	}
	b.index--
	return true
}

// Seek moves the cursor to i, clamped to the record set.
func (b *Browser) Seek(i int) {
	switch {
	case len(b.records) == 0 || i < 0:
		b.index = 0
	case i >= len(b.records):
		b.index = len(b.records) - 1
	default:
		b.index = i
	}
}

// IsDate reports whether edits to column are validated as dates.
func (b *Browser) IsDate(column string) bool {
	return b.dates[column]
}

// Editable reports whether column may be edited.
func (b *Browser) Editable(column string) bool {
	return b.schema.Editable(column)
}

// Normalize converts field text into the value that would be stored.
func (b *Browser) Normalize(column, text string) (Value, error) {
	if b.IsDate(column) {
		return ParseDate(text)
	}
	return text, nil
}

// UpdateField applies an edit to the current record and writes the whole
// record through the saver. It reports whether a write happened.
//
// Read-only columns and invalid dates are rejected before anything changes.
// An edit equal to the stored value is not written. When the save fails the
// previous value is restored.
func (b *Browser) UpdateField(ctx context.Context, column, text string) (bool, error) {
	rec := b.Current()
	if rec == nil {
		return false, ErrEmptyData
	}
	current, ok := rec.Get(column)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if !b.Editable(column) {
		return false, fmt.Errorf("%w: %s", ErrReadOnly, column)
	}

	next, err := b.Normalize(column, text)
	if err != nil {
		log.Printf("Rejected edit of %s: %v", column, err)
		return false, err
	}

	if sameValue(current, next) {
		if b.verbose {
			log.Printf("Field %q not changed, skipping save", column)
		}
		return false, nil
	}

	if err := rec.Set(column, next); err != nil {
		return false, err
	}
	if b.verbose {
		log.Printf("Updated field %q to %q", column, FormatValue(next))
	}

	if b.saver == nil {
		return true, nil
	}
	if err := b.saver.SaveRecord(ctx, rec); err != nil {
		_ = rec.Set(column, current)
		log.Printf("Error saving record %v: %v", keyOf(b.schema, rec), err)
		return false, fmt.Errorf("save %s: %w", column, err)
	}
	return true, nil
}

// Find moves the cursor to the first record after from that matches q,
// wrapping around. It reports whether a match was found.
func (b *Browser) Find(q *Query, from int) bool {
	n := len(b.records)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		if q.Match(b.records[i]) {
			b.index = i
			return true
		}
	}
	return false
}

func keyOf(s *Schema, rec *Record) Value {
	v, _ := rec.Get(s.KeyColumn())
	return v
}
