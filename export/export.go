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

// Package export writes a browsed record set to CSV, JSON or Parquet by way
// of an Arrow table.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"leadsdesk/records"
)

// Format represents the supported export formats
type Format int

const (
	FormatCSV Format = iota
	FormatJSON
	FormatParquet
)

// Formats lists the format names accepted by ParseFormat.
var Formats = []string{"csv", "json", "parquet"}

// ParseFormat maps a name such as "csv" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	}
	return 0, fmt.Errorf("unsupported export format %q", name)
}

// String returns the format name.
func (f Format) String() string {
	if int(f) < len(Formats) && f >= 0 {
		return Formats[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// Table converts a record set into an Arrow table. Integer and floating
// point columns keep their type; everything else, dates included, is
// exported as text. The caller releases the table.
func Table(schema *records.Schema, recs []*records.Record) (arrow.Table, error) {
	names := columnNames(schema, recs)
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrowType(schema, name), Nullable: true}
	}
	as := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, as)
	defer b.Release()

	for _, rec := range recs {
		for i, name := range names {
			v, _ := rec.Get(name)
			appendValue(b.Field(i), v)
		}
	}

	batch := b.NewRecord()
	defer batch.Release()
	return array.NewTableFromRecords(as, []arrow.Record{batch}), nil
}

func columnNames(schema *records.Schema, recs []*records.Record) []string {
	if schema != nil && len(schema.Columns) > 0 {
		return schema.Names()
	}
	if len(recs) > 0 {
		return recs[0].Columns()
	}
	return nil
}

func arrowType(schema *records.Schema, name string) arrow.DataType {
	c, ok := schema.Column(name)
	switch {
	case ok && c.IsInteger():
		return arrow.PrimitiveTypes.Int64
	case ok && c.IsFloat():
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// appendValue appends v to the builder, converting edited text back to the
// column type. Text that does not convert is stored as NULL.
func appendValue(fb array.Builder, v records.Value) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		switch x := v.(type) {
		case int64:
			b.Append(x)
		default:
			n, err := strconv.ParseInt(strings.TrimSpace(records.FormatValue(v)), 10, 64)
			if err != nil {
				b.AppendNull()
				return
			}
			b.Append(n)
		}
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			b.Append(x)
		case int64:
			b.Append(float64(x))
		default:
			f, err := strconv.ParseFloat(strings.TrimSpace(records.FormatValue(v)), 64)
			if err != nil {
				b.AppendNull()
				return
			}
			b.Append(f)
		}
	case *array.StringBuilder:
		b.Append(records.FormatValue(v))
	default:
		fb.AppendNull()
	}
}

// Write exports table to filePath in the given format.
func Write(table arrow.Table, format Format, filePath string) error {
	switch format {
	case FormatCSV:
		return ToCSV(table, filePath)
	case FormatJSON:
		return ToJSON(table, filePath)
	case FormatParquet:
		return ToParquet(table, filePath)
	}
	return fmt.Errorf("unsupported export format %v", format)
}

// ToParquet exports the Arrow table to a Parquet file
func ToParquet(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), file, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// ToCSV exports the Arrow table to a CSV file with a header row. NULL is
// written as an empty cell.
func ToCSV(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file, table.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))

	tr := array.NewTableReader(table, max(table.NumRows(), 1))
	defer tr.Release()

	wrote := false
	for tr.Next() {
		if err := w.Write(tr.Record()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		wrote = true
	}
	if tr.Err() != nil {
		return fmt.Errorf("error reading table: %w", tr.Err())
	}
	if !wrote {
		cols := emptyColumns(table.Schema())
		empty := array.NewRecord(table.Schema(), cols, 0)
		for _, c := range cols {
			c.Release()
		}
		defer empty.Release()
		if err := w.Write(empty); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// ToJSON exports the Arrow table as an indented array of objects, one per row.
func ToJSON(table arrow.Table, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	tr := array.NewTableReader(table, max(table.NumRows(), 1))
	defer tr.Release()

	rows := make([]map[string]any, 0, table.NumRows())
	schema := table.Schema()
	for tr.Next() {
		rec := tr.Record()
		for rowIdx := 0; rowIdx < int(rec.NumRows()); rowIdx++ {
			row := make(map[string]any, rec.NumCols())
			for colIdx, col := range rec.Columns() {
				row[schema.Field(colIdx).Name] = col.GetOneForMarshal(rowIdx)
			}
			rows = append(rows, row)
		}
	}
	if tr.Err() != nil {
		return fmt.Errorf("error reading table: %w", tr.Err())
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func emptyColumns(schema *arrow.Schema) []arrow.Array {
	cols := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		b := array.NewBuilder(memory.DefaultAllocator, f.Type)
		cols[i] = b.NewArray()
		b.Release()
	}
	return cols
}
