package windows

import (
	"fyne.io/fyne/v2/widget"

	"leadsdesk/records"
)

// FieldEntry is a single-line entry bound to one column of the current
// record. When it loses focus with text that differs from what it was
// rendered with, it hands the text to onCommit once.
type FieldEntry struct {
	widget.Entry
	Column string

	initial  records.Value
	onCommit func(column, text string) bool
}

// NewFieldEntry creates the entry for column showing value. Read-only
// columns are rendered disabled and never commit.
func NewFieldEntry(column string, value records.Value, editable bool, onCommit func(column, text string) bool) *FieldEntry {
	e := &FieldEntry{
		Column:   column,
		initial:  value,
		onCommit: onCommit,
	}
	e.ExtendBaseWidget(e)
	e.SetText(records.FormatValue(value))
	if !editable {
		e.Disable()
	}
	return e
}

// Dirty reports whether the text differs from the last committed value.
func (e *FieldEntry) Dirty() bool {
	return records.IsDirty(e.initial, e.Text)
}

// FocusLost commits a dirty field.
func (e *FieldEntry) FocusLost() {
	e.Entry.FocusLost()
	e.commit()
}

func (e *FieldEntry) commit() {
	if e.Disabled() || e.onCommit == nil || !e.Dirty() {
		return
	}
	if e.onCommit(e.Column, e.Text) {
		e.initial = e.Text
	}
}
