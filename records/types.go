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

// Package records holds the in-memory model of a browsed table: records,
// column descriptors, the navigation cursor and the field update rules.
// Nothing in here touches a display or a database connection.
package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a single cell: string, int64, float64, bool or nil for NULL.
type Value = any

// Record is one row as an ordered mapping from column name to value.
type Record struct {
	columns []string
	values  map[string]Value
}

// NewRecord creates a record from parallel column and value slices.
// Missing values are treated as NULL.
func NewRecord(columns []string, values []Value) *Record {
	r := &Record{
		columns: make([]string, len(columns)),
		values:  make(map[string]Value, len(columns)),
	}
	copy(r.columns, columns)
	for i, c := range columns {
		if i < len(values) {
			r.values[c] = Normalize(values[i])
		} else {
			r.values[c] = nil
		}
	}
	return r
}

// Columns returns the column names in table order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Get returns the value of a column and whether the column exists.
func (r *Record) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Set replaces the value of an existing column.
func (r *Record) Set(column string, v Value) error {
	if _, ok := r.values[column]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	r.values[column] = Normalize(v)
	return nil
}

// Values returns the values in column order.
func (r *Record) Values() []Value {
	out := make([]Value, len(r.columns))
	for i, c := range r.columns {
		out[i] = r.values[c]
	}
	return out
}

// Strings returns the formatted values in column order.
func (r *Record) Strings() []string {
	out := make([]string, len(r.columns))
	for i, c := range r.columns {
		out[i] = FormatValue(r.values[c])
	}
	return out
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	return NewRecord(r.columns, r.Values())
}

// Normalize maps driver values onto the Value set.
// Byte slices become strings and sized integers widen to int64. Unsigned
// values beyond int64 are kept as their decimal text. FLOAT values keep
// their single precision digits.
func Normalize(v any) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint64:
		return normalizeUint(x)
	case float32:
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(x), 'g', -1, 32), 64)
		if err != nil {
			return float64(x)
		}
		return f
	default:
		return v
	}
}

func normalizeUint(x uint64) Value {
	if x > math.MaxInt64 {
		return strconv.FormatUint(x, 10)
	}
	return int64(x)
}

// FormatValue renders a value the way it is shown in an editable field.
// NULL renders as the empty string.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Column describes one column as reported by DESCRIBE.
type Column struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// IsPrimary reports whether the column is part of the primary key.
func (c Column) IsPrimary() bool {
	return strings.EqualFold(c.Key, "PRI")
}

// IsAutoIncrement reports whether the column is filled by the server.
func (c Column) IsAutoIncrement() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// Editable reports whether users may change the column.
func (c Column) Editable() bool {
	return !c.IsPrimary() && !c.IsAutoIncrement()
}

// IsDate reports whether the column holds a plain DATE.
func (c Column) IsDate() bool {
	return baseType(c.Type) == "date"
}

// IsInteger reports whether the column holds an integer type.
func (c Column) IsInteger() bool {
	switch baseType(c.Type) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return true
	}
	return false
}

// IsFloat reports whether the column holds an approximate numeric type.
func (c Column) IsFloat() bool {
	switch baseType(c.Type) {
	case "float", "double", "real":
		return true
	}
	return false
}

// baseType strips length and modifiers: "int(11) unsigned" -> "int".
func baseType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexAny(t, "( "); i >= 0 {
		t = t[:i]
	}
	return t
}

// DefaultKeyColumn is used when a table reports no primary key.
const DefaultKeyColumn = "id"

// Schema is the column layout of one table.
type Schema struct {
	Table   string
	Columns []Column
	index   map[string]int
}

// NewSchema builds a schema and indexes its columns by name.
func NewSchema(table string, columns []Column) *Schema {
	s := &Schema{Table: table, Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		s.index[c.Field] = i
	}
	return s
}

// Column looks up a column descriptor by name.
func (s *Schema) Column(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// Names returns the column names in table order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Field
	}
	return out
}

// KeyColumn returns the first primary key column, or "id".
func (s *Schema) KeyColumn() string {
	if s != nil {
		for _, c := range s.Columns {
			if c.IsPrimary() {
				return c.Field
			}
		}
	}
	return DefaultKeyColumn
}

// Editable reports whether a column may be edited. Columns missing from the
// schema are read-only.
func (s *Schema) Editable(name string) bool {
	c, ok := s.Column(name)
	return ok && c.Editable()
}

// ReadOnly returns the names of all columns that may not be edited.
func (s *Schema) ReadOnly() []string {
	out := make([]string, 0)
	for _, c := range s.Columns {
		if !c.Editable() {
			out = append(out, c.Field)
		}
	}
	return out
}
