package database

import (
	"context"
	"log"
	"strings"
	"sync"

	"leadsdesk/records"
)

// SchemaCache keeps DESCRIBE results for the life of the process so a
// table's structure is read once, not on every window open.
type SchemaCache struct {
	mu      sync.Mutex
	schemas map[string]*records.Schema
}

// NewSchemaCache returns an empty cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{schemas: make(map[string]*records.Schema)}
}

// Get returns the cached schema of table, describing it on first use.
func (c *SchemaCache) Get(ctx context.Context, db *DB, table string) (*records.Schema, error) {
	key := db.Key() + "/" + table

	c.mu.Lock()
	s, ok := c.schemas[key]
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := db.Describe(ctx, table)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.schemas[key] = s
	c.mu.Unlock()
	return s, nil
}

// Invalidate drops every cached schema of the server identified by dbKey.
func (c *SchemaCache) Invalidate(dbKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := dbKey + "/"
	for k := range c.schemas {
		if strings.HasPrefix(k, prefix) {
			delete(c.schemas, k)
		}
	}
}

// TableSaver writes records of one table through a DB handle.
type TableSaver struct {
	DB    *DB
	Table string
	Key   string
}

var _ records.Saver = (*TableSaver)(nil)

// SaveRecord implements records.Saver.
func (s *TableSaver) SaveRecord(ctx context.Context, rec *records.Record) error {
	if err := s.DB.SaveRecord(ctx, s.Table, s.Key, rec); err != nil {
		return err
	}
	v, _ := rec.Get(s.Key)
	log.Printf("Record %v of %s saved successfully", v, s.Table)
	return nil
}

// Load describes table through the cache and fetches all of its rows.
func Load(ctx context.Context, db *DB, cache *SchemaCache, table string) (*records.Schema, []*records.Record, error) {
	schema, err := cache.Get(ctx, db, table)
	if err != nil {
		return nil, nil, err
	}
	recs, err := db.FetchAll(ctx, table)
	if err != nil {
		return schema, nil, err
	}
	return schema, recs, nil
}
