// Package frame is a small column oriented table used by the ingest and
// clean stages and read back by the dashboard.
package frame

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Cell holds one value. Str is the textual value; Num or Time carry the
// parsed value for numeric and datetime columns. Valid is false for nulls.
type Cell struct {
	Str   string
	Num   float64
	Time  time.Time
	Valid bool
}

type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NewColumn builds a column from raw values and converts it to kind.
func NewColumn(name string, kind Kind, values []string) *Column {
	c := &Column{Name: name, Kind: KindUnknown, Cells: make([]Cell, len(values))}
	for i, v := range values {
		c.Cells[i] = Cell{Str: v, Valid: !IsNull(v)}
	}
	c.Convert(kind)
	return c
}

// Texts returns the textual values, with "" for nulls.
func (c *Column) Texts() []string {
	out := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.Valid {
			out[i] = cell.Str
		}
	}
	return out
}

// Convert re-parses every valid cell as kind. Values that do not parse
// become null; the number of such values is returned.
func (c *Column) Convert(kind Kind) int {
	invalid := 0
	for i := range c.Cells {
		cell := &c.Cells[i]
		if !cell.Valid {
			continue
		}
		switch kind {
		case KindNumeric:
			v, ok := ParseNumber(cell.Str)
			if !ok {
				invalid++
				*cell = Cell{Str: cell.Str}
				continue
			}
			cell.Num = v
		case KindDatetime:
			t, ok := ParseTime(cell.Str)
			if !ok {
				invalid++
				*cell = Cell{Str: cell.Str}
				continue
			}
			cell.Time = t
		}
	}
	c.Kind = kind
	return invalid
}

// Numbers returns the valid numeric values of the column.
func (c *Column) Numbers() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Valid {
			out = append(out, cell.Num)
		}
	}
	return out
}

func (c *Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Valid {
			n++
		}
	}
	return n
}

// Set replaces the value of row i, parsing it according to the column kind.
func (c *Column) Set(i int, value string) {
	cell := Cell{Str: value, Valid: !IsNull(value)}
	if cell.Valid {
		switch c.Kind {
		case KindNumeric:
			cell.Num, cell.Valid = ParseNumber(value)
		case KindDatetime:
			cell.Time, cell.Valid = ParseTime(value)
		}
	}
	c.Cells[i] = cell
}

// Key is the canonical text of a cell used for equality: nulls compare equal
// to each other and to nothing else.
func (c *Column) Key(i int) string {
	if !c.Cells[i].Valid {
		return "\x00"
	}
	return c.Format(i)
}

// Format renders row i the way WriteCSV does.
func (c *Column) Format(i int) string {
	cell := c.Cells[i]
	if !cell.Valid {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(cell.Num, 'f', -1, 64)
	case KindDatetime:
		return cell.Time.Format(c.dateLayout())
	default:
		return cell.Str
	}
}

func (c *Column) dateLayout() string {
	for _, cell := range c.Cells {
		if !cell.Valid {
			continue
		}
		t := cell.Time
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 || t.Location() != time.UTC {
			return time.RFC3339Nano
		}
	}
	return "2006-01-02"
}

func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

type Frame struct {
	Columns []*Column
}

// New builds a frame from a header and rows of raw values. Short rows are
// padded with nulls. Column kinds are inferred with InferReadKind.
func New(header []string, rows [][]string) (*Frame, error) {
	names := dedupeNames(header)
	values := make([][]string, len(names))
	for r, row := range rows {
		if len(row) > len(names) {
			return nil, errors.Newf("row %d has %d fields, header has %d", r+1, len(row), len(names))
		}
		for c := range names {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			values[c] = append(values[c], v)
		}
	}

	f := &Frame{}
	for c, name := range names {
		vals := values[c]
		if vals == nil {
			vals = []string{}
		}
		f.Columns = append(f.Columns, NewColumn(name, InferReadKind(vals), vals))
	}
	return f, nil
}

// dedupeNames suffixes repeated header names with .1, .2, ...
func dedupeNames(header []string) []string {
	used := map[string]bool{}
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func (f *Frame) NumRows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Cells)
}

func (f *Frame) NumColumns() int {
	return len(f.Columns)
}

func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

func (f *Frame) Column(name string) *Column {
	for _, c := range f.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (f *Frame) Clone() *Frame {
	out := &Frame{Columns: make([]*Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.clone()
	}
	return out
}

// Rows returns a new frame holding the given rows, in order.
func (f *Frame) Rows(idx []int) *Frame {
	out := &Frame{Columns: make([]*Column, len(f.Columns))}
	for i, c := range f.Columns {
		cells := make([]Cell, len(idx))
		for j, r := range idx {
			cells[j] = c.Cells[r]
		}
		out.Columns[i] = &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var idx []int
	for r := 0; r < f.NumRows(); r++ {
		if keep(r) {
			idx = append(idx, r)
		}
	}
	return f.Rows(idx)
}

// Head returns the first n rows starting at offset.
func (f *Frame) Head(offset, n int) *Frame {
	total := f.NumRows()
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + n
	if n < 0 || end > total {
		end = total
	}
	idx := make([]int, 0, end-offset)
	for r := offset; r < end; r++ {
		idx = append(idx, r)
	}
	return f.Rows(idx)
}

func (f *Frame) DropColumn(name string) bool {
	for i, c := range f.Columns {
		if c.Name == name {
			f.Columns = append(f.Columns[:i], f.Columns[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Frame) AddColumn(c *Column) error {
	if len(f.Columns) > 0 && len(c.Cells) != f.NumRows() {
		return errors.Newf("column %q has %d rows, frame has %d", c.Name, len(c.Cells), f.NumRows())
	}
	if f.Column(c.Name) != nil {
		return errors.Newf("column %q already exists", c.Name)
	}
	f.Columns = append(f.Columns, c)
	return nil
}

// RowKey joins the canonical text of row r over cols.
func (f *Frame) RowKey(r int, cols []*Column) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(c.Key(r))
	}
	return b.String()
}

// Row renders row r as text, in column order.
func (f *Frame) Row(r int) []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Format(r)
	}
	return out
}

// ColumnsOfKind returns the columns of the given kind that pass the filter.
func (f *Frame) ColumnsOfKind(kind Kind, skip func(name string) bool) []*Column {
	var out []*Column
	for _, c := range f.Columns {
		if c.Kind != kind || (skip != nil && skip(c.Name)) {
			continue
		}
		out = append(out, c)
	}
	return out
}
