// Package confounds loads fmriprep nuisance-regressor tables and
// prepares them for confound regression: column selection from a
// default or user-supplied list, and mean imputation of missing values.
package confounds

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "embed"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//go:embed default_confounds.txt
var defaultList string

// GlobalSignal is the confound column dropped when global signal
// regression is disabled.
const GlobalSignal = "global_signal"

// Table is a confound table: one float column per regressor, one row
// per volume. Missing cells are NaN until imputed.
type Table struct {
	Columns []string
	data    [][]float64 // column-major
	rows    int
}

// DefaultList returns the bundled confound column names.
func DefaultList() []string {
	return splitLines(defaultList)
}

// LoadList reads confound column names from a text file, one per line.
func LoadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading confound list: %w", err)
	}
	return splitLines(string(data)), nil
}

func splitLines(s string) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// ReadTSV reads an fmriprep confounds_timeseries.tsv file. Cells that
// are empty or "n/a" become NaN.
func ReadTSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening confounds: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: empty confound table", path)
	}

	columns := records[0]
	rows := len(records) - 1
	data := make([][]float64, len(columns))
	for i := range data {
		data[i] = make([]float64, rows)
	}
	for j, record := range records[1:] {
		if len(record) != len(columns) {
			return nil, fmt.Errorf("%s: row %d has %d fields, want %d", path, j+1, len(record), len(columns))
		}
		for i, cell := range record {
			data[i][j], err = parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %s: %w", path, j+1, columns[i], err)
			}
		}
	}
	return &Table{Columns: columns, data: data, rows: rows}, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "n/a" || cell == "N/A" || cell == "NaN" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", cell, err)
	}
	return v, nil
}

// Rows returns the number of volumes in the table.
func (t *Table) Rows() int { return t.rows }

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, error) {
	for i, col := range t.Columns {
		if col == name {
			return t.data[i], nil
		}
	}
	return nil, fmt.Errorf("confound column %q not found", name)
}

// ImputeMean replaces NaNs in every column with the column mean over
// the observed values. A column with no observed values imputes zero.
func (t *Table) ImputeMean() {
	for _, col := range t.data {
		var observed []float64
		for _, v := range col {
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		fill := 0.0
		if len(observed) > 0 {
			fill = stat.Mean(observed, nil)
		}
		for j, v := range col {
			if math.IsNaN(v) {
				col[j] = fill
			}
		}
	}
}

// Pick returns a new table holding only the named columns, in order.
func (t *Table) Pick(names []string) (*Table, error) {
	picked := &Table{Columns: names, rows: t.rows}
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		picked.data = append(picked.data, col)
	}
	return picked, nil
}

// Drop returns a new table without the named column. Dropping a column
// that is not present is a no-op.
func (t *Table) Drop(name string) *Table {
	dropped := &Table{rows: t.rows}
	for i, col := range t.Columns {
		if col == name {
			continue
		}
		dropped.Columns = append(dropped.Columns, col)
		dropped.data = append(dropped.data, t.data[i])
	}
	return dropped
}

// Matrix returns the table as a volumes x regressors dense matrix.
func (t *Table) Matrix() *mat.Dense {
	m := mat.NewDense(t.rows, len(t.Columns), nil)
	for i, col := range t.data {
		for j, v := range col {
			m.Set(j, i, v)
		}
	}
	return m
}
