/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

// Package fitstable implements a minimal, self-describing FITS-BINTABLE-like
// column store: an ordered header block plus a set of named, typed columns.
//
// github.com/observerly/iris reads and writes FITS *images* only
// (pkg/fits.FITSImage, a 2D pixel array plus a header), not tables. This is
// therefore a deliberately small stdlib-only component: the predicted-line
// catalogue, the spectral-format table and the dispersion-map coefficient
// table all need a table, not an image.
package fitstable

/*****************************************************************************************************************/

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

/*****************************************************************************************************************/

const magic = "SXFT"

const version = uint8(1)

/*****************************************************************************************************************/

// ColumnType is the on-disk type of one column.
type ColumnType uint8

/*****************************************************************************************************************/

const (
	Int64 ColumnType = iota
	Float64
	String
)

/*****************************************************************************************************************/

// Column describes one named, typed column. String columns are stored in a
// fixed byte Width, space-padded.
type Column struct {
	Name  string
	Type  ColumnType
	Width int
}

/*****************************************************************************************************************/

// Table is an ordered header plus a set of typed, named columns, generalising
// pkg/catalog/base.go's struct-tag-per-source-field idea into a dynamic
// column set keyed by name rather than a fixed Go struct.
type Table struct {
	headerKeys   []string
	headerValues map[string]string
	Columns      []Column
	Rows         [][]any
}

/*****************************************************************************************************************/

// New constructs an empty Table with the given columns. Column names are
// canonicalised to lower-case (case-insensitive lookup).
func New(columns []Column) *Table {
	cols := make([]Column, len(columns))

	for i, c := range columns {
		c.Name = strings.ToLower(c.Name)
		cols[i] = c
	}

	return &Table{
		headerValues: map[string]string{},
		Columns:      cols,
	}
}

/*****************************************************************************************************************/

// SetHeader records one provenance header key, preserving insertion order.
func (t *Table) SetHeader(key, value string) {
	if _, exists := t.headerValues[key]; !exists {
		t.headerKeys = append(t.headerKeys, key)
	}

	t.headerValues[key] = value
}

/*****************************************************************************************************************/

// DeleteHeader removes a header key if present, keeping the insertion order
// of the remaining keys.
func (t *Table) DeleteHeader(key string) {
	if _, exists := t.headerValues[key]; !exists {
		return
	}

	delete(t.headerValues, key)

	for i, k := range t.headerKeys {
		if k == key {
			t.headerKeys = append(t.headerKeys[:i], t.headerKeys[i+1:]...)
			break
		}
	}
}

/*****************************************************************************************************************/

// Header returns the header value for key and whether it was present.
func (t *Table) Header(key string) (string, bool) {
	v, ok := t.headerValues[key]
	return v, ok
}

/*****************************************************************************************************************/

// HeaderKeys returns header keys in insertion order.
func (t *Table) HeaderKeys() []string {
	out := make([]string, len(t.headerKeys))
	copy(out, t.headerKeys)
	return out
}

/*****************************************************************************************************************/

func (t *Table) columnIndex(name string) (int, error) {
	name = strings.ToLower(name)

	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("fitstable: unknown column %q", name)
}

/*****************************************************************************************************************/

// AppendRow appends one row; values must match t.Columns in order and type.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("fitstable: row has %d values, table has %d columns", len(values), len(t.Columns))
	}

	t.Rows = append(t.Rows, values)

	return nil
}

/*****************************************************************************************************************/

// Int64 returns the value of an Int64 column at row.
func (t *Table) Int64(name string, row int) (int64, error) {
	i, err := t.columnIndex(name)
	if err != nil {
		return 0, err
	}

	v, ok := t.Rows[row][i].(int64)
	if !ok {
		return 0, fmt.Errorf("fitstable: column %q is not int64", name)
	}

	return v, nil
}

/*****************************************************************************************************************/

// Float64 returns the value of a Float64 column at row.
func (t *Table) Float64(name string, row int) (float64, error) {
	i, err := t.columnIndex(name)
	if err != nil {
		return 0, err
	}

	v, ok := t.Rows[row][i].(float64)
	if !ok {
		return 0, fmt.Errorf("fitstable: column %q is not float64", name)
	}

	return v, nil
}

/*****************************************************************************************************************/

// String returns the value of a String column at row.
func (t *Table) String(name string, row int) (string, error) {
	i, err := t.columnIndex(name)
	if err != nil {
		return "", err
	}

	v, ok := t.Rows[row][i].(string)
	if !ok {
		return "", fmt.Errorf("fitstable: column %q is not string", name)
	}

	return v, nil
}

/*****************************************************************************************************************/

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

/*****************************************************************************************************************/

// WriteFile serialises the table to path.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if err := Write(w, t); err != nil {
		return err
	}

	return w.Flush()
}

/*****************************************************************************************************************/

// Write serialises the table to w.
func Write(w io.Writer, t *Table) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, version); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(t.headerKeys))); err != nil {
		return err
	}

	for _, k := range t.headerKeys {
		if err := writeString(w, k); err != nil {
			return err
		}

		if err := writeString(w, t.headerValues[k]); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(t.Columns))); err != nil {
		return err
	}

	for _, c := range t.Columns {
		if err := writeString(w, c.Name); err != nil {
			return err
		}

		if err := binary.Write(w, binary.BigEndian, uint8(c.Type)); err != nil {
			return err
		}

		if err := binary.Write(w, binary.BigEndian, uint32(c.Width)); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(t.Rows))); err != nil {
		return err
	}

	for _, row := range t.Rows {
		for i, c := range t.Columns {
			switch c.Type {
			case Int64:
				if err := binary.Write(w, binary.BigEndian, row[i].(int64)); err != nil {
					return err
				}
			case Float64:
				if err := binary.Write(w, binary.BigEndian, row[i].(float64)); err != nil {
					return err
				}
			case String:
				if err := writeFixedString(w, row[i].(string), c.Width); err != nil {
					return err
				}
			default:
				return fmt.Errorf("fitstable: unknown column type %d", c.Type)
			}
		}
	}

	return nil
}

/*****************************************************************************************************************/

// ReadFile deserialises a table previously written with WriteFile.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(bufio.NewReader(f))
}

/*****************************************************************************************************************/

// Read deserialises a table from r.
func Read(r io.Reader) (*Table, error) {
	buf := make([]byte, 4)

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	if string(buf) != magic {
		return nil, fmt.Errorf("fitstable: bad magic %q", buf)
	}

	var v uint8
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return nil, err
	}

	t := &Table{headerValues: map[string]string{}}

	var numHeaders uint32
	if err := binary.Read(r, binary.BigEndian, &numHeaders); err != nil {
		return nil, err
	}

	for i := uint32(0); i < numHeaders; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}

		val, err := readString(r)
		if err != nil {
			return nil, err
		}

		t.SetHeader(k, val)
	}

	var numColumns uint32
	if err := binary.Read(r, binary.BigEndian, &numColumns); err != nil {
		return nil, err
	}

	for i := uint32(0); i < numColumns; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}

		var typ uint8
		if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
			return nil, err
		}

		var width uint32
		if err := binary.Read(r, binary.BigEndian, &width); err != nil {
			return nil, err
		}

		t.Columns = append(t.Columns, Column{Name: strings.ToLower(name), Type: ColumnType(typ), Width: int(width)})
	}

	var numRows uint32
	if err := binary.Read(r, binary.BigEndian, &numRows); err != nil {
		return nil, err
	}

	for i := uint32(0); i < numRows; i++ {
		row := make([]any, len(t.Columns))

		for c, col := range t.Columns {
			switch col.Type {
			case Int64:
				var val int64
				if err := binary.Read(r, binary.BigEndian, &val); err != nil {
					return nil, err
				}
				row[c] = val
			case Float64:
				var val float64
				if err := binary.Read(r, binary.BigEndian, &val); err != nil {
					return nil, err
				}
				row[c] = val
			case String:
				val, err := readFixedString(r, col.Width)
				if err != nil {
					return nil, err
				}
				row[c] = val
			default:
				return nil, fmt.Errorf("fitstable: unknown column type %d", col.Type)
			}
		}

		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

/*****************************************************************************************************************/

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}

	_, err := w.Write([]byte(s))

	return err
}

/*****************************************************************************************************************/

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}

	buf := make([]byte, n)

	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

/*****************************************************************************************************************/

func writeFixedString(w io.Writer, s string, width int) error {
	buf := make([]byte, width)

	copy(buf, s)

	for i := len(s); i < width; i++ {
		buf[i] = ' '
	}

	_, err := w.Write(buf)

	return err
}

/*****************************************************************************************************************/

func readFixedString(r io.Reader, width int) (string, error) {
	buf := make([]byte, width)

	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return strings.TrimRight(string(buf), " "), nil
}

/*****************************************************************************************************************/
