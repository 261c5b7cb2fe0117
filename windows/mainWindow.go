package windows

import (
	"errors"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"leadsdesk/config"
	"leadsdesk/database"
	"leadsdesk/records"
)

// Options configure the main window.
type Options struct {
	Connections *config.Connections
	Verbose     bool
}

// MainWindow is the application shell: menu, connection overview and
// status bar. Record windows are opened from here.
type MainWindow struct {
	a         fyne.App
	w         fyne.Window
	conns     *config.Connections
	configs   map[string]*config.Config
	schemas   *database.SchemaCache
	watcher   *config.Watcher
	verbose   bool
	statusBar *widget.Label
	summary   map[string]*widget.Label
}

// CreateMainWindow starts the application and blocks until it quits.
func CreateMainWindow(opts Options) {
	a := app.NewWithID("leadsdesk")
	a.Settings().SetTheme(&CustomTheme{})
	t := NewMainWindow(a, opts)
	t.Run()
}

// NewMainWindow builds the main window on a without showing it.
func NewMainWindow(a fyne.App, opts Options) *MainWindow {
	t := &MainWindow{
		a:       a,
		conns:   opts.Connections,
		configs: make(map[string]*config.Config),
		schemas: database.NewSchemaCache(),
		verbose: opts.Verbose,
		summary: make(map[string]*widget.Label),
	}
	t.w = a.NewWindow("Leads Desk")
	t.w.Resize(fyne.NewSize(800, 600))
	t.w.SetMaster()
	t.createMenu()
	t.createContent()
	t.w.SetOnClosed(t.stopWatching)
	return t
}

// Window returns the main fyne window.
func (t *MainWindow) Window() fyne.Window {
	return t.w
}

// Run loads the stored configuration, checks the leads connection and
// shows the window.
func (t *MainWindow) Run() {
	t.startWatching()
	t.checkConfigAndConnect()
	t.w.ShowAndRun()
}

// SetStatus updates the status bar message
func (t *MainWindow) SetStatus(message string) {
	if t.statusBar != nil {
		t.statusBar.SetText(message)
	}
}

func (t *MainWindow) createMenu() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Leads Settings...", func() { t.OpenSettings(t.conns.Leads) }),
		fyne.NewMenuItem("Ticket System Settings...", func() { t.OpenSettings(t.conns.Tickets) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Load Leads", func() { t.LoadRecords(t.conns.Leads) }),
		fyne.NewMenuItem("Load Tickets", func() { t.LoadRecords(t.conns.Tickets) }),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", t.ShowAbout),
	)
	t.w.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

func (t *MainWindow) createContent() {
	t.statusBar = statusLabel("Ready")

	rows := container.NewVBox()
	for _, conn := range t.conns.All() {
		conn := conn
		label := widget.NewLabel("")
		t.summary[conn.Name] = label
		t.refreshSummary(conn)

		settings := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() { t.OpenSettings(conn) })
		load := widget.NewButtonWithIcon("Load "+conn.Title, theme.FolderOpenIcon(), func() { t.LoadRecords(conn) })
		rows.Add(container.NewBorder(nil, nil, boldLabel(conn.Title), container.NewHBox(settings, load), label))
	}

	card := widget.NewCard("Connections", "Records are saved as soon as a field loses focus.", rows)
	t.w.SetContent(container.NewBorder(nil, container.NewHBox(t.statusBar), nil, nil, container.NewPadded(card)))
}

func (t *MainWindow) refreshSummary(conn *config.Connection) {
	label, ok := t.summary[conn.Name]
	if !ok {
		return
	}
	if cfg, ok := t.configs[conn.Name]; ok {
		label.SetText(fmt.Sprintf("%s (table %s)", cfg, conn.Table))
	} else {
		label.SetText("not configured")
	}
}

// checkConfigAndConnect loads the leads configuration and verifies it, or
// asks for credentials when there is none.
func (t *MainWindow) checkConfigAndConnect() {
	leads := t.conns.Leads
	if !leads.Store.Exists() {
		log.Printf("No configuration file found at %s. Prompting for database credentials...", leads.Store.Path)
		t.OpenSettings(leads)
		return
	}

	log.Printf("Loading configuration from %s", leads.Store.Path)
	if err := t.loadConfig(leads); err != nil {
		dialog.ShowError(fmt.Errorf("failed to load configuration: %w", err), t.w)
		return
	}
	t.verifyConnection(leads)

	if t.conns.Tickets.Store.Exists() {
		if err := t.loadConfig(t.conns.Tickets); err != nil {
			t.SetStatus(fmt.Sprintf("Ticket configuration unreadable: %v", err))
		}
	}
}

// loadConfig reads the stored configuration of conn into memory.
func (t *MainWindow) loadConfig(conn *config.Connection) error {
	cfg, err := conn.Load()
	if err != nil {
		log.Printf("Error loading %s configuration: %v", conn.Name, err)
		delete(t.configs, conn.Name)
		t.refreshSummary(conn)
		return err
	}
	t.configs[conn.Name] = &cfg
	t.refreshSummary(conn)
	if t.verbose {
		log.Printf("%s configuration loaded: %s", conn.Title, cfg)
	}
	return nil
}

// verifyConnection runs SELECT 1 against conn and reports failures in a dialog.
func (t *MainWindow) verifyConnection(conn *config.Connection) bool {
	cfg, ok := t.configs[conn.Name]
	if !ok {
		dialog.ShowError(errNoConfig, t.w)
		return false
	}

	t.SetStatus(fmt.Sprintf("Connecting to %s...", cfg))
	ctx, cancel := newCallContext()
	defer cancel()

	if err := database.Verify(ctx, *cfg); err != nil {
		log.Printf("Database connection error: %v", err)
		t.SetStatus(fmt.Sprintf("%s database unreachable", conn.Title))
		dialog.ShowError(fmt.Errorf("failed to connect to the %s database: %w", conn.Name, err), t.w)
		return false
	}
	log.Printf("Connected to the %s database successfully.", conn.Name)
	t.SetStatus(fmt.Sprintf("Connected to %s", cfg))
	return true
}

// OpenSettings shows the credentials dialog for conn.
func (t *MainWindow) OpenSettings(conn *config.Connection) {
	sd := NewSettingsDialog(t.w, conn, func(cfg config.Config) {
		t.onSettingsSaved(conn)
	})
	sd.Show()
}

func (t *MainWindow) onSettingsSaved(conn *config.Connection) {
	if err := t.loadConfig(conn); err != nil {
		dialog.ShowError(err, t.w)
		return
	}
	if cfg := t.configs[conn.Name]; cfg != nil {
		t.schemas.Invalidate(cfg.String())
	}
	dialog.ShowInformation("Success", fmt.Sprintf("%s configuration saved successfully.", conn.Title), t.w)
	t.verifyConnection(conn)
}

// LoadRecords fetches the table of conn and opens a record window on it.
func (t *MainWindow) LoadRecords(conn *config.Connection) {
	cfg, ok := t.configs[conn.Name]
	if !ok {
		if err := t.loadConfig(conn); err != nil {
			dialog.ShowError(errNoConfig, t.w)
			return
		}
		cfg = t.configs[conn.Name]
	}

	t.SetStatus(fmt.Sprintf("Loading %s...", conn.Table))
	db, err := database.Open(*cfg)
	if err != nil {
		dialog.ShowError(err, t.w)
		return
	}
	db.Verbose = t.verbose

	ctx, cancel := newCallContext()
	defer cancel()

	schema, recs, err := database.Load(ctx, db, t.schemas, conn.Table)
	if err != nil {
		db.Close()
		log.Printf("Error fetching %s: %v", conn.Table, err)
		t.SetStatus(fmt.Sprintf("Error fetching %s", conn.Table))
		dialog.ShowError(fmt.Errorf("an error occurred while fetching %s: %w", conn.Table, err), t.w)
		return
	}
	if len(recs) == 0 {
		db.Close()
		log.Printf("No records found in %s table.", conn.Table)
		t.SetStatus("No records found")
		dialog.ShowInformation("Info", fmt.Sprintf("No records found in %s.", conn.Table), t.w)
		return
	}

	saver := &database.TableSaver{DB: db, Table: conn.Table, Key: schema.KeyColumn()}
	browser := records.NewBrowser(schema, recs, saver, records.Options{
		DateColumns: conn.DateColumns,
		Verbose:     t.verbose,
	})
	rw := NewRecordWindow(t.a, conn.Title, browser, db, t.verbose)
	rw.Show()
	t.SetStatus(fmt.Sprintf("Loaded %d records from %s", len(recs), conn.Table))
}

// ShowAbout shows the about box.
func (t *MainWindow) ShowAbout() {
	dialog.ShowInformation("About", "Leads Desk browses and edits MySQL/MariaDB records one at a time.", t.w)
}

// startWatching reloads a connection's configuration when its file is
// changed by another program.
func (t *MainWindow) startWatching() {
	w, err := config.NewWatcher(500 * time.Millisecond)
	if err != nil {
		log.Printf("Config watcher disabled: %v", err)
		return
	}
	for _, conn := range t.conns.All() {
		conn := conn
		if err := w.Watch(conn.Store.Path, func(string) {
			fyne.Do(func() { t.reloadConfig(conn) })
		}); err != nil {
			log.Printf("Not watching %s: %v", conn.Store.Path, err)
		}
	}
	w.Start()
	t.watcher = w
}

func (t *MainWindow) stopWatching() {
	if t.watcher != nil {
		t.watcher.Close()
		t.watcher = nil
	}
}

func (t *MainWindow) reloadConfig(conn *config.Connection) {
	err := t.loadConfig(conn)
	switch {
	case errors.Is(err, config.ErrNotFound):
		t.SetStatus(fmt.Sprintf("%s configuration removed", conn.Title))
	case err != nil:
		t.SetStatus(fmt.Sprintf("%s configuration unreadable: %v", conn.Title, err))
	default:
		t.SetStatus(fmt.Sprintf("%s configuration reloaded", conn.Title))
	}
}
