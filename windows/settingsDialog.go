package windows

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"leadsdesk/config"
)

// SettingsDialog edits the credentials of one connection.
type SettingsDialog struct {
	dialog  dialog.Dialog
	warning dialog.Dialog
	window  fyne.Window
	conn    *config.Connection
	onSaved func(config.Config)

	hostEntry     *widget.Entry
	userEntry     *widget.Entry
	passwordEntry *widget.Entry
	dbEntry       *widget.Entry
}

// NewSettingsDialog creates the dialog, prefilled from the stored file.
// onSaved runs after the file has been written.
func NewSettingsDialog(w fyne.Window, conn *config.Connection, onSaved func(config.Config)) *SettingsDialog {
	sd := &SettingsDialog{
		window:        w,
		conn:          conn,
		onSaved:       onSaved,
		hostEntry:     widget.NewEntry(),
		userEntry:     widget.NewEntry(),
		passwordEntry: widget.NewPasswordEntry(),
		dbEntry:       widget.NewEntry(),
	}
	if cfg, err := conn.Store.Load(); err == nil {
		sd.hostEntry.SetText(cfg.Host)
		sd.userEntry.SetText(cfg.User)
		sd.passwordEntry.SetText(cfg.Password)
		sd.dbEntry.SetText(cfg.DB)
	}
	sd.createDialog()
	return sd
}

func (sd *SettingsDialog) createDialog() {
	items := []*widget.FormItem{
		widget.NewFormItem("Host", sd.hostEntry),
		widget.NewFormItem("User", sd.userEntry),
		widget.NewFormItem("Password", sd.passwordEntry),
		widget.NewFormItem("Database", sd.dbEntry),
	}
	sd.hostEntry.SetPlaceHolder("localhost or host:port")

	sd.dialog = dialog.NewForm(
		fmt.Sprintf("%s Database Settings", sd.conn.Title),
		"Save",
		"Cancel",
		items,
		func(confirmed bool) {
			if confirmed {
				sd.Submit()
			}
		},
		sd.window,
	)
	sd.dialog.Resize(fyne.NewSize(420, 300))
}

// Show opens the dialog.
func (sd *SettingsDialog) Show() {
	sd.dialog.Show()
}

// Config returns the trimmed values currently in the form.
func (sd *SettingsDialog) Config() config.Config {
	return config.Config{
		Host:     sd.hostEntry.Text,
		User:     sd.userEntry.Text,
		Password: sd.passwordEntry.Text,
		DB:       sd.dbEntry.Text,
	}.Trimmed()
}

// Submit validates and saves the form. Blank fields show a warning; the
// form reopens once the warning is dismissed.
func (sd *SettingsDialog) Submit() error {
	cfg := sd.Config()
	name := strings.ToLower(sd.conn.Title)

	if err := cfg.Validate(); err != nil {
		warning := dialog.NewInformation("Warning", "All fields must be filled out.", sd.window)
		warning.SetOnClosed(sd.dialog.Show)
		warning.Show()
		sd.warning = warning
		return err
	}

	if err := sd.conn.Store.Save(cfg); err != nil {
		log.Printf("Error saving %s configuration: %v", name, err)
		dialog.ShowError(fmt.Errorf("failed to save %s configuration: %w", name, err), sd.window)
		return err
	}
	log.Printf("%s configuration saved to %s", sd.conn.Title, sd.conn.Store.Path)

	if sd.onSaved != nil {
		sd.onSaved(cfg)
	}
	return nil
}

// errNoConfig is shown when an action needs credentials that were never saved.
var errNoConfig = errors.New("database configuration is missing")
