package config

import "fmt"

// Connection names a logical database connection: where its credentials
// live and which table the browser opens on it.
type Connection struct {
	Name        string
	Title       string
	Table       string
	DateColumns []string
	EnvPrefix   string
	Store       *Store
}

// Load reads the stored credentials and fills blanks from the environment.
func (c *Connection) Load() (Config, error) {
	cfg, err := c.Store.Load()
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg, c.EnvPrefix), nil
}

// Connections are the leads and ticket-system connections.
type Connections struct {
	Leads   *Connection
	Tickets *Connection
}

// NewConnections builds both connections on top of paths.
func NewConnections(paths Paths) *Connections {
	return &Connections{
		Leads: &Connection{
			Name:      "leads",
			Title:     "Leads",
			Table:     "leads",
			EnvPrefix: LeadsEnvPrefix,
			Store:     NewStore(paths.Leads),
		},
		Tickets: &Connection{
			Name:        "tickets",
			Title:       "Tickets",
			Table:       "ost_user_email",
			DateColumns: []string{"attribution_date"},
			EnvPrefix:   TicketsEnvPrefix,
			Store:       NewStore(paths.Tickets),
		},
	}
}

// All returns the connections in menu order.
func (c *Connections) All() []*Connection {
	return []*Connection{c.Leads, c.Tickets}
}

// ByName looks a connection up by its Name.
func (c *Connections) ByName(name string) (*Connection, error) {
	for _, conn := range c.All() {
		if conn.Name == name {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("unknown connection %q (want leads or tickets)", name)
}
