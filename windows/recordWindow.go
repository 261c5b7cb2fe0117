// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package windows

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"leadsdesk/export"
	"leadsdesk/records"
)

// fieldsPerRow is the number of label/entry pairs on one grid row.
const fieldsPerRow = 3

// RecordWindow shows one record of a record set at a time.
type RecordWindow struct {
	w       fyne.Window
	title   string
	browser *records.Browser
	closer  io.Closer
	verbose bool

	grid          *fyne.Container
	entries       map[string]*FieldEntry
	totalLabel    *widget.Label
	positionLabel *widget.Label
	statusBar     *widget.Label
	prevButton    *widget.Button
	nextButton    *widget.Button
	findEntry     *widget.Entry
}

// NewRecordWindow builds the window for browser. closer is closed together
// with the window and normally is the window's database handle.
func NewRecordWindow(a fyne.App, title string, browser *records.Browser, closer io.Closer, verbose bool) *RecordWindow {
	rw := &RecordWindow{
		w:       a.NewWindow(title),
		title:   title,
		browser: browser,
		closer:  closer,
		verbose: verbose,
		entries: make(map[string]*FieldEntry),
	}
	rw.w.Resize(fyne.NewSize(900, 600))
	rw.w.SetOnClosed(rw.teardown)
	rw.createUI()
	rw.display()
	return rw
}

// Show opens the window.
func (rw *RecordWindow) Show() {
	rw.w.Show()
}

// Window returns the underlying fyne window.
func (rw *RecordWindow) Window() fyne.Window {
	return rw.w
}

// SetStatus updates the status line.
func (rw *RecordWindow) SetStatus(message string) {
	rw.statusBar.SetText(message)
}

// teardown commits a pending edit before the connection goes away.
func (rw *RecordWindow) teardown() {
	rw.flushFocus()
	if rw.closer == nil {
		return
	}
	if err := rw.closer.Close(); err != nil {
		log.Printf("Error closing %s connection: %v", rw.title, err)
	}
	rw.closer = nil
}

func (rw *RecordWindow) createUI() {
	rw.totalLabel = boldLabel(fmt.Sprintf("Total records: %d", rw.browser.Len()))
	rw.positionLabel = widget.NewLabel("")
	rw.statusBar = statusLabel("Ready")

	rw.findEntry = widget.NewEntry()
	rw.findEntry.SetPlaceHolder("Find, e.g. status = open AND city ~ ber")
	rw.findEntry.OnSubmitted = rw.find

	exportButton := widget.NewButtonWithIcon("Export...", theme.DocumentSaveIcon(), rw.showExportDialog)

	top := container.NewBorder(nil, nil,
		container.NewHBox(rw.totalLabel, rw.positionLabel),
		exportButton,
		rw.findEntry,
	)

	rw.grid = container.New(layout.NewGridLayoutWithColumns(fieldsPerRow * 2))
	scroll := container.NewVScroll(rw.grid)

	rw.prevButton = widget.NewButtonWithIcon("Previous", theme.NavigateBackIcon(), rw.Previous)
	rw.nextButton = widget.NewButtonWithIcon("Next", theme.NavigateNextIcon(), rw.Next)
	rw.nextButton.IconPlacement = widget.ButtonIconTrailingText
	nav := container.NewGridWithColumns(2, rw.prevButton, rw.nextButton)

	bottom := container.NewVBox(nav, container.NewHBox(rw.statusBar))
	rw.w.SetContent(container.NewBorder(top, bottom, nil, nil, scroll))
}

// display renders the current record, one entry per column.
func (rw *RecordWindow) display() {
	rw.grid.RemoveAll()
	rw.entries = make(map[string]*FieldEntry)

	rec := rw.browser.Current()
	if rec != nil {
		for _, column := range rec.Columns() {
			value, _ := rec.Get(column)
			editable := rw.browser.Editable(column)
			if rw.verbose {
				if editable {
					log.Printf("Active field: %s", column)
				} else {
					log.Printf("Deactivated field: %s", column)
				}
			}
			entry := NewFieldEntry(column, value, editable, rw.commitField)
			rw.entries[column] = entry
			rw.grid.Add(widget.NewLabel(column + ":"))
			rw.grid.Add(entry)
		}
	}
	rw.grid.Refresh()
	rw.updateNavButtons()
}

func (rw *RecordWindow) updateNavButtons() {
	if rw.browser.CanPrevious() {
		rw.prevButton.Enable()
	} else {
		rw.prevButton.Disable()
	}
	if rw.browser.CanNext() {
		rw.nextButton.Enable()
	} else {
		rw.nextButton.Disable()
	}
	if rw.browser.Len() == 0 {
		rw.positionLabel.SetText("")
		return
	}
	rw.positionLabel.SetText(fmt.Sprintf("Record %d of %d", rw.browser.Index()+1, rw.browser.Len()))
}

// flushFocus makes the focused field lose focus so a pending edit is
// committed against the record it was made on.
func (rw *RecordWindow) flushFocus() {
	if c := rw.w.Canvas(); c != nil && c.Focused() != nil {
		c.Unfocus()
	}
}

// Previous shows the previous record.
func (rw *RecordWindow) Previous() {
	rw.flushFocus()
	if rw.browser.Previous() {
		rw.display()
	}
}

// Next shows the next record.
func (rw *RecordWindow) Next() {
	rw.flushFocus()
	if rw.browser.Next() {
		rw.display()
	}
}

// commitField is the write-through for one edited field. It reports whether
// the field's text is now the saved value.
func (rw *RecordWindow) commitField(column, text string) bool {
	ctx, cancel := newCallContext()
	defer cancel()

	changed, err := rw.browser.UpdateField(ctx, column, text)
	switch {
	case errors.Is(err, records.ErrInvalidDate):
		rw.SetStatus(fmt.Sprintf("Invalid date format for %s. Expected format: YYYY-MM-DD", column))
		return false
	case errors.Is(err, records.ErrReadOnly):
		return false
	case err != nil:
		rw.SetStatus(fmt.Sprintf("Error saving %s: %v", column, err))
		return false
	case changed:
		rw.SetStatus(fmt.Sprintf("Saved %s", column))
	}
	return true
}

func (rw *RecordWindow) find(text string) {
	rw.flushFocus()
	q, err := records.ParseQuery(rw.browser.Schema().Names(), text)
	if err != nil {
		rw.SetStatus(err.Error())
		return
	}
	if q == nil {
		return
	}
	if !rw.browser.Find(q, rw.browser.Index()) {
		rw.SetStatus("No matching record")
		return
	}
	rw.display()
	rw.SetStatus(fmt.Sprintf("Found record %d", rw.browser.Index()+1))
}

func (rw *RecordWindow) showExportDialog() {
	rw.flushFocus()
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, rw.w)
			return
		}
		if uc == nil {
			return
		}
		path := uc.URI().Path()
		uc.Close()

		if err := rw.Export(path); err != nil {
			dialog.ShowError(err, rw.w)
		}
	}, rw.w)
	save.SetFileName(strings.ToLower(rw.title) + ".csv")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".json", ".parquet"}))
	save.Show()
}

// Export writes the record set to path; the extension selects the format.
func (rw *RecordWindow) Export(path string) error {
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	table, err := export.Table(rw.browser.Schema(), rw.browser.Records())
	if err != nil {
		return err
	}
	defer table.Release()

	if err := export.Write(table, format, path); err != nil {
		return err
	}
	rw.SetStatus(fmt.Sprintf("Exported %d records to %s", table.NumRows(), filepath.Base(path)))
	return nil
}
