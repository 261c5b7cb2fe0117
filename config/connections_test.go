package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnections(t *testing.T) {
	paths, err := DefaultPaths(t.TempDir())
	require.NoError(t, err)
	conns := NewConnections(paths)

	assert.Equal(t, "leads", conns.Leads.Table)
	assert.Equal(t, "ost_user_email", conns.Tickets.Table)
	assert.Equal(t, []string{"attribution_date"}, conns.Tickets.DateColumns)
	assert.Equal(t, paths.Tickets, conns.Tickets.Store.Path)

	got, err := conns.ByName("tickets")
	require.NoError(t, err)
	assert.Same(t, conns.Tickets, got)

	_, err = conns.ByName("orders")
	assert.Error(t, err)
}

func TestConnectionLoadAppliesEnv(t *testing.T) {
	dir := t.TempDir()
	conns := NewConnections(Paths{Leads: filepath.Join(dir, LeadsFile), Tickets: filepath.Join(dir, TicketsFile)})

	_, err := conns.Leads.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, conns.Leads.Store.Save(Config{Host: "h", User: "u", DB: "d"}))
	t.Setenv(LeadsEnvPrefix+"_PASSWORD", "from-env")

	cfg, err := conns.Leads.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Password)

	stored, err := conns.Leads.Store.Load()
	require.NoError(t, err)
	assert.Empty(t, stored.Password)
}
