package windows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsdesk/records"
)

type savedRecords struct {
	recs []*records.Record
	err  error
}

func (s *savedRecords) SaveRecord(ctx context.Context, rec *records.Record) error {
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec.Clone())
	return nil
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func ticketBrowser(saver records.Saver) *records.Browser {
	schema := records.NewSchema("ost_user_email", []records.Column{
		{Field: "id", Type: "int(10) unsigned", Key: "PRI", Extra: "auto_increment"},
		{Field: "address", Type: "varchar(255)"},
		{Field: "attribution_date", Type: "varchar(32)", Null: "YES"},
	})
	cols := schema.Names()
	recs := []*records.Record{
		records.NewRecord(cols, []records.Value{int64(1), "a@example.com", "2024-01-01"}),
		records.NewRecord(cols, []records.Value{int64(2), "b@example.com", nil}),
		records.NewRecord(cols, []records.Value{int64(3), "c@example.com", "2024-03-03"}),
	}
	return records.NewBrowser(schema, recs, saver, records.Options{
		DateColumns: []string{"attribution_date"},
	})
}

func TestRecordWindowNavigation(t *testing.T) {
	a := test.NewTempApp(t)
	closer := &closeCounter{}
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(&savedRecords{}), closer, false)

	assert.Equal(t, "Total records: 3", rw.totalLabel.Text)
	assert.Equal(t, "Record 1 of 3", rw.positionLabel.Text)
	assert.True(t, rw.prevButton.Disabled())
	assert.False(t, rw.nextButton.Disabled())
	assert.Equal(t, "a@example.com", rw.entries["address"].Text)

	test.Tap(rw.nextButton)
	test.Tap(rw.nextButton)
	assert.Equal(t, "Record 3 of 3", rw.positionLabel.Text)
	assert.True(t, rw.nextButton.Disabled())
	assert.False(t, rw.prevButton.Disabled())
	assert.Equal(t, "c@example.com", rw.entries["address"].Text)

	test.Tap(rw.prevButton)
	assert.Equal(t, "b@example.com", rw.entries["address"].Text)
	assert.Equal(t, "", rw.entries["attribution_date"].Text)

	rw.Window().Close()
	assert.Equal(t, 1, closer.n)
}

func TestRecordWindowSavesFocusedFieldOnClose(t *testing.T) {
	a := test.NewTempApp(t)
	saver := &savedRecords{}
	closer := &closeCounter{}
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(saver), closer, false)

	entry := rw.entries["address"]
	rw.Window().Canvas().Focus(entry)
	entry.SetText("edited@example.com")
	rw.Window().Close()

	require.Len(t, saver.recs, 1)
	v, _ := saver.recs[0].Get("address")
	assert.Equal(t, "edited@example.com", v)
	id, _ := saver.recs[0].Get("id")
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, closer.n)
}

func TestRecordWindowKeyIsReadOnly(t *testing.T) {
	a := test.NewTempApp(t)
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(&savedRecords{}), nil, false)

	assert.True(t, rw.entries["id"].Disabled())
	assert.False(t, rw.entries["address"].Disabled())
}

func TestRecordWindowSavesOnBlur(t *testing.T) {
	a := test.NewTempApp(t)
	saver := &savedRecords{}
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(saver), nil, false)

	entry := rw.entries["address"]
	entry.FocusLost()
	assert.Empty(t, saver.recs, "unchanged field must not be written")

	entry.SetText("new@example.com")
	entry.FocusLost()
	require.Len(t, saver.recs, 1)
	v, _ := saver.recs[0].Get("address")
	assert.Equal(t, "new@example.com", v)
	assert.Equal(t, "Saved address", rw.statusBar.Text)

	entry.FocusLost()
	assert.Len(t, saver.recs, 1, "second blur without edits must not write again")
}

func TestRecordWindowRejectsInvalidDate(t *testing.T) {
	a := test.NewTempApp(t)
	saver := &savedRecords{}
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(saver), nil, false)

	entry := rw.entries["attribution_date"]
	entry.SetText("01.02.2024")
	entry.FocusLost()

	assert.Empty(t, saver.recs)
	assert.Equal(t, "Invalid date format for attribution_date. Expected format: YYYY-MM-DD", rw.statusBar.Text)
	assert.Equal(t, "01.02.2024", entry.Text)
	assert.True(t, entry.Dirty())

	v, _ := rw.browser.Current().Get("attribution_date")
	assert.Equal(t, "2024-01-01", v)
}

func TestRecordWindowReportsSaveError(t *testing.T) {
	a := test.NewTempApp(t)
	saver := &savedRecords{err: errors.New("connection refused")}
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(saver), nil, false)

	entry := rw.entries["address"]
	entry.SetText("x@example.com")
	entry.FocusLost()

	assert.Contains(t, rw.statusBar.Text, "Error saving address")
	assert.True(t, entry.Dirty())
}

func TestRecordWindowFind(t *testing.T) {
	a := test.NewTempApp(t)
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(&savedRecords{}), nil, false)

	rw.find("address ~ c@")
	assert.Equal(t, "Record 3 of 3", rw.positionLabel.Text)

	rw.find("address = nobody")
	assert.Equal(t, "No matching record", rw.statusBar.Text)
	assert.Equal(t, "Record 3 of 3", rw.positionLabel.Text)
}

func TestRecordWindowExport(t *testing.T) {
	a := test.NewTempApp(t)
	rw := NewRecordWindow(a, "Tickets", ticketBrowser(&savedRecords{}), nil, false)

	path := filepath.Join(t.TempDir(), "tickets.csv")
	require.NoError(t, rw.Export(path))
	assert.Equal(t, "Exported 3 records to tickets.csv", rw.statusBar.Text)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)

	assert.Error(t, rw.Export(filepath.Join(t.TempDir(), "tickets.xlsx")))
}
