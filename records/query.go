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

package records

import (
	"fmt"
	"strconv"
	"strings"
)

// CompOp is a comparison operator in a find expression.
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// Expression is a single comparison. An empty Column searches every column.
type Expression struct {
	Column   string
	Operator CompOp
	Value    string
}

// LogicalOp joins two expressions.
type LogicalOp int

const (
	LogicAND LogicalOp = iota
	LogicOR
)

// Query is a parsed find expression, evaluated left to right.
type Query struct {
	Expressions []Expression
	LogicOps    []LogicalOp
	columns     map[string]string
}

// ParseQuery parses text such as `status = open AND city ~ ber` against the
// given column names. Column names match case-insensitively. Blank text
// yields a nil query, which matches every record.
func ParseQuery(columns []string, text string) (*Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	q := &Query{columns: make(map[string]string, len(columns))}
	for _, c := range columns {
		q.columns[strings.ToLower(c)] = c
	}

	for _, part := range splitByLogicOps(text) {
		if part.isOperator {
			if part.text == "AND" {
				q.LogicOps = append(q.LogicOps, LogicAND)
			} else {
				q.LogicOps = append(q.LogicOps, LogicOR)
			}
			continue
		}
		expr, err := q.parseExpression(part.text)
		if err != nil {
			return nil, err
		}
		q.Expressions = append(q.Expressions, expr)
	}

	if len(q.Expressions) == 0 || len(q.LogicOps) != len(q.Expressions)-1 {
		return nil, fmt.Errorf("%w: mismatched expressions and operators", ErrInvalidQuery)
	}
	return q, nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits on whole-word AND/OR, keeping the operators.
func splitByLogicOps(text string) []queryPart {
	parts := make([]queryPart, 0)
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, queryPart{text: s})
		}
		current.Reset()
	}

	for i := 0; i < len(text); {
		matched := false
		for _, op := range []string{"AND", "OR"} {
			end := i + len(op)
			if end > len(text) || !strings.EqualFold(text[i:end], op) {
				continue
			}
			if (i == 0 || isSpace(text[i-1])) && (end == len(text) || isSpace(text[end])) {
				flush()
				parts = append(parts, queryPart{text: op, isOperator: true})
				i = end
				matched = true
				break
			}
		}
		if !matched {
			current.WriteByte(text[i])
			i++
		}
	}
	flush()
	return parts
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (q *Query) parseExpression(text string) (Expression, error) {
	// Longer symbols first so >= is not read as >.
	operators := []struct {
		op     CompOp
		symbol string
	}{
		{OpGreaterEqual, ">="},
		{OpLessEqual, "<="},
		{OpNotEqual, "!="},
		{OpEqual, "="},
		{OpGreater, ">"},
		{OpLess, "<"},
		{OpContains, "~"},
	}

	for _, o := range operators {
		idx := strings.Index(text, o.symbol)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(text[:idx])
		column, ok := q.columns[strings.ToLower(name)]
		if !ok {
			return Expression{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		value := strings.Trim(strings.TrimSpace(text[idx+len(o.symbol):]), "\"'")
		return Expression{Column: column, Operator: o.op, Value: value}, nil
	}

	return Expression{Operator: OpContains, Value: text}, nil
}

// Match evaluates the query against a record. A nil query matches.
func (q *Query) Match(rec *Record) bool {
	if q == nil || len(q.Expressions) == 0 {
		return true
	}
	result := q.eval(q.Expressions[0], rec)
	for i, op := range q.LogicOps {
		next := q.eval(q.Expressions[i+1], rec)
		switch op {
		case LogicAND:
			result = result && next
		case LogicOR:
			result = result || next
		}
	}
	return result
}

func (q *Query) eval(expr Expression, rec *Record) bool {
	if expr.Column == "" {
		term := strings.ToLower(expr.Value)
		for _, cell := range rec.Strings() {
			if strings.Contains(strings.ToLower(cell), term) {
				return true
			}
		}
		return false
	}

	v, ok := rec.Get(expr.Column)
	if !ok {
		return false
	}
	cell := FormatValue(v)

	switch expr.Operator {
	case OpEqual:
		return strings.EqualFold(cell, expr.Value)
	case OpNotEqual:
		return !strings.EqualFold(cell, expr.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(expr.Value))
	default:
		return compare(cell, expr.Value, expr.Operator)
	}
}

// compare orders numerically when both sides parse as numbers, otherwise
// case-insensitively by text. Dates in YYYY-MM-DD order correctly as text.
func compare(cell, value string, op CompOp) bool {
	var cmp int
	a, err1 := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	b, err2 := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err1 == nil && err2 == nil {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(strings.ToLower(cell), strings.ToLower(value))
	}

	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}
	return false
}
