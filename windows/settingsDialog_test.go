package windows

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsdesk/config"
)

func testConnections(t *testing.T) *config.Connections {
	t.Helper()
	dir := t.TempDir()
	return config.NewConnections(config.Paths{
		Leads:   filepath.Join(dir, config.LeadsFile),
		Tickets: filepath.Join(dir, config.TicketsFile),
	})
}

func TestSettingsDialogRejectsBlankFields(t *testing.T) {
	a := test.NewTempApp(t)
	w := a.NewWindow("settings")
	conns := testConnections(t)

	saved := false
	sd := NewSettingsDialog(w, conns.Leads, func(config.Config) { saved = true })
	sd.hostEntry.SetText("db.local")
	sd.userEntry.SetText("crm")

	err := sd.Submit()
	assert.ErrorIs(t, err, config.ErrIncomplete)
	assert.False(t, saved)
	assert.False(t, conns.Leads.Store.Exists())
}

func TestSettingsDialogWarningPrecedesForm(t *testing.T) {
	a := test.NewTempApp(t)
	w := a.NewWindow("settings")
	conns := testConnections(t)

	sd := NewSettingsDialog(w, conns.Leads, nil)
	require.Error(t, sd.Submit())

	overlays := w.Canvas().Overlays()
	require.Len(t, overlays.List(), 1, "only the warning is shown")
	require.NotNil(t, sd.warning)

	sd.warning.Hide()
	assert.Len(t, overlays.List(), 1, "the form reopens after the warning")
}

func TestSettingsDialogSaves(t *testing.T) {
	a := test.NewTempApp(t)
	w := a.NewWindow("settings")
	conns := testConnections(t)

	var got config.Config
	sd := NewSettingsDialog(w, conns.Tickets, func(cfg config.Config) { got = cfg })
	sd.hostEntry.SetText(" db.local ")
	sd.userEntry.SetText("ost")
	sd.passwordEntry.SetText("secret")
	sd.dbEntry.SetText("osticket")

	require.NoError(t, sd.Submit())
	want := config.Config{Host: "db.local", User: "ost", Password: "secret", DB: "osticket"}
	assert.Equal(t, want, got)

	stored, err := conns.Tickets.Store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	again := NewSettingsDialog(w, conns.Tickets, nil)
	assert.Equal(t, "db.local", again.hostEntry.Text)
	assert.Equal(t, "secret", again.passwordEntry.Text)
}
