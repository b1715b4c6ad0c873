// Package reflection provides a typed-column table of per-reflection
// processing results backed by an HDF5 group. Columns keep the dataset name
// and shape they were read with; selection produces a new table with the
// chosen rows of every column.
package reflection

import (
	"crypto/rand"
	"fmt"

	"crystio/internal/h5"
)

// DefaultGroup is the group reflections are read from and written to when
// no other group is named.
const DefaultGroup = "/dials/processing/group_0"

// Dataset names of the table metadata inside the group.
const (
	experimentIDsDataset = "experiment_ids"
	identifiersDataset   = "identifiers"
)

// Column is one named column of the table. Concrete types are FloatColumn
// and IntColumn.
type Column interface {
	// Name is the dataset name the column maps to.
	Name() string

	// Shape is the dataset shape; one or two dimensions, rows first.
	Shape() []int

	// Rows is the extent of the first dimension.
	Rows() int

	selectRows(rows []int) Column
}

type columnBase struct {
	name  string
	shape []int
}

func (c *columnBase) Name() string { return c.name }

func (c *columnBase) Shape() []int { return c.shape }

func (c *columnBase) Rows() int {
	if len(c.shape) == 0 {
		return 0
	}
	return c.shape[0]
}

// width is the number of values per row.
func (c *columnBase) width() int {
	if len(c.shape) < 2 {
		return 1
	}
	return c.shape[1]
}

func (c *columnBase) selectShape(n int) []int {
	shape := make([]int, len(c.shape))
	copy(shape, c.shape)
	shape[0] = n
	return shape
}

// FloatColumn is a column of float64 values.
type FloatColumn struct {
	columnBase

	// Data holds the values in row-major order
	Data []float64
}

// NewFloatColumn builds a column after checking data fills shape.
func NewFloatColumn(name string, shape []int, data []float64) (*FloatColumn, error) {
	if err := checkShape(name, shape, len(data)); err != nil {
		return nil, err
	}
	return &FloatColumn{columnBase: columnBase{name: name, shape: shape}, Data: data}, nil
}

// At returns the value at row i, component j.
func (c *FloatColumn) At(i, j int) float64 {
	return c.Data[i*c.width()+j]
}

func (c *FloatColumn) selectRows(rows []int) Column {
	w := c.width()
	data := make([]float64, 0, len(rows)*w)
	for _, r := range rows {
		data = append(data, c.Data[r*w:(r+1)*w]...)
	}
	return &FloatColumn{
		columnBase: columnBase{name: c.name, shape: c.selectShape(len(rows))},
		Data:       data,
	}
}

// IntColumn is a column of int64 values.
type IntColumn struct {
	columnBase

	// Data holds the values in row-major order
	Data []int64
}

// NewIntColumn builds a column after checking data fills shape.
func NewIntColumn(name string, shape []int, data []int64) (*IntColumn, error) {
	if err := checkShape(name, shape, len(data)); err != nil {
		return nil, err
	}
	return &IntColumn{columnBase: columnBase{name: name, shape: shape}, Data: data}, nil
}

// At returns the value at row i, component j.
func (c *IntColumn) At(i, j int) int64 {
	return c.Data[i*c.width()+j]
}

func (c *IntColumn) selectRows(rows []int) Column {
	w := c.width()
	data := make([]int64, 0, len(rows)*w)
	for _, r := range rows {
		data = append(data, c.Data[r*w:(r+1)*w]...)
	}
	return &IntColumn{
		columnBase: columnBase{name: c.name, shape: c.selectShape(len(rows))},
		Data:       data,
	}
}

func checkShape(name string, shape []int, n int) error {
	if len(shape) < 1 || len(shape) > 2 {
		return fmt.Errorf("column %s: shape must have 1 or 2 dimensions, got %d", name, len(shape))
	}
	size := shape[0]
	if len(shape) == 2 {
		size *= shape[1]
	}
	if size != n {
		return fmt.Errorf("column %s: %d values do not fill shape %v", name, n, shape)
	}
	return nil
}

// Table is an ordered set of equally-tall columns plus the experiment
// metadata mapping table rows to experiments.
type Table struct {
	columns []Column

	experimentIDs   []uint64
	identifiers     []string
	maxExperimentID uint64
}

// New returns an empty table with one generated experiment id and
// identifier pair.
func New() *Table {
	t := &Table{}
	t.GenerateNewAttributes()
	return t
}

// NewWithMetadata returns an empty table carrying the given experiment ids
// and identifiers.
func NewWithMetadata(experimentIDs []uint64, identifiers []string) *Table {
	t := &Table{experimentIDs: experimentIDs, identifiers: identifiers}
	for _, id := range experimentIDs {
		if id >= t.maxExperimentID {
			t.maxExperimentID = id + 1
		}
	}
	return t
}

// Load reads the table from the default group of an HDF5 file.
func Load(path string) (*Table, error) {
	return LoadGroup(path, DefaultGroup)
}

// LoadGroup reads every float and int dataset directly under group as a
// column. Datasets of other classes are skipped. The experiment metadata
// datasets, when present, populate the table metadata instead of columns.
func LoadGroup(path, group string) (*Table, error) {
	file, err := h5.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	names, err := file.ListDatasets(group)
	if err != nil {
		return nil, fmt.Errorf("reading reflection group: %w", err)
	}

	t := &Table{}
	for _, full := range names {
		name := datasetName(full)
		switch name {
		case experimentIDsDataset:
			ids, _, err := file.ReadInts(full)
			if err != nil {
				return nil, err
			}
			unsigned := make([]uint64, len(ids))
			for i, id := range ids {
				unsigned[i] = uint64(id)
				if unsigned[i] >= t.maxExperimentID {
					t.maxExperimentID = unsigned[i] + 1
				}
			}
			t.experimentIDs = unsigned
			continue
		case identifiersDataset:
			idents, err := file.ReadStrings(full)
			if err != nil {
				return nil, err
			}
			t.identifiers = idents
			continue
		}

		class, err := file.DatasetClass(full)
		if err != nil {
			return nil, err
		}
		switch class {
		case h5.ClassFloat:
			data, shape, err := file.ReadFloats(full)
			if err != nil {
				return nil, err
			}
			col, err := NewFloatColumn(name, shape, data)
			if err != nil {
				return nil, err
			}
			t.columns = append(t.columns, col)
		case h5.ClassInt:
			data, shape, err := file.ReadInts(full)
			if err != nil {
				return nil, err
			}
			col, err := NewIntColumn(name, shape, data)
			if err != nil {
				return nil, err
			}
			t.columns = append(t.columns, col)
		}
	}
	return t, nil
}

func datasetName(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '/' {
			return full[i+1:]
		}
	}
	return full
}

// Rows is the number of rows, taken from the first column.
func (t *Table) Rows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Rows()
}

// ColumnNames lists the column names in load order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// Float returns the named column if it exists and holds floats.
func (t *Table) Float(name string) (*FloatColumn, bool) {
	for _, col := range t.columns {
		if col.Name() == name {
			c, ok := col.(*FloatColumn)
			return c, ok
		}
	}
	return nil, false
}

// Int returns the named column if it exists and holds ints.
func (t *Table) Int(name string) (*IntColumn, bool) {
	for _, col := range t.columns {
		if col.Name() == name {
			c, ok := col.(*IntColumn)
			return c, ok
		}
	}
	return nil, false
}

// AddColumn appends a column. Its row count must match any existing
// columns.
func (t *Table) AddColumn(col Column) error {
	if len(t.columns) > 0 && col.Rows() != t.Rows() {
		return fmt.Errorf("column %s has %d rows, table has %d", col.Name(), col.Rows(), t.Rows())
	}
	t.columns = append(t.columns, col)
	return nil
}

// ExperimentIDs returns the experiment ids the rows map to.
func (t *Table) ExperimentIDs() []uint64 {
	return t.experimentIDs
}

// Identifiers returns the string identifiers paired with the experiment ids.
func (t *Table) Identifiers() []string {
	return t.identifiers
}

// SetMetadata replaces the experiment ids and identifiers.
func (t *Table) SetMetadata(experimentIDs []uint64, identifiers []string) {
	t.experimentIDs = experimentIDs
	t.identifiers = identifiers
	for _, id := range experimentIDs {
		if id >= t.maxExperimentID {
			t.maxExperimentID = id + 1
		}
	}
}

// GenerateNewAttributes creates and registers a fresh experiment id and
// identifier pair.
func (t *Table) GenerateNewAttributes() (uint64, string) {
	id := t.maxExperimentID
	t.maxExperimentID++
	identifier := ersatzUUID4()
	t.experimentIDs = append(t.experimentIDs, id)
	t.identifiers = append(t.identifiers, identifier)
	return id, identifier
}

// Select returns a new table holding the given rows of every column, in
// the order given. The metadata is carried over unchanged.
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		experimentIDs:   t.experimentIDs,
		identifiers:     t.identifiers,
		maxExperimentID: t.maxExperimentID,
	}
	for _, col := range t.columns {
		out.columns = append(out.columns, col.selectRows(rows))
	}
	return out
}

// SelectMask returns a new table holding the rows where mask is true.
func (t *Table) SelectMask(mask []bool) *Table {
	var rows []int
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

// Write stores the table under group in the named file, creating the file
// if needed. Columns shaped (N, 1) are written one-dimensional as (N,).
func (t *Table) Write(path, group string) error {
	file, err := h5.OpenReadWrite(path)
	if err != nil {
		file, err = h5.Create(path)
		if err != nil {
			return err
		}
	}
	defer file.Close()

	if err := file.EnsureGroup(group); err != nil {
		return err
	}

	if len(t.experimentIDs) != len(t.identifiers) {
		return fmt.Errorf("%d experiment ids but %d identifiers", len(t.experimentIDs), len(t.identifiers))
	}
	if err := file.WriteUints(group+"/"+experimentIDsDataset, t.experimentIDs, []int{len(t.experimentIDs)}); err != nil {
		return err
	}
	if err := file.WriteStrings(group+"/"+identifiersDataset, t.identifiers); err != nil {
		return err
	}

	for _, col := range t.columns {
		full := group + "/" + col.Name()
		shape := col.Shape()
		if len(shape) == 2 && shape[1] == 1 {
			shape = shape[:1]
		}
		switch c := col.(type) {
		case *FloatColumn:
			if err := file.WriteFloats(full, c.Data, shape); err != nil {
				return err
			}
		case *IntColumn:
			if err := file.WriteInts(full, c.Data, shape); err != nil {
				return err
			}
		}
	}
	return nil
}

// ersatzUUID4 formats 16 random bytes as a UUID-shaped string. The bytes
// are rendered in little-endian order and no version bits are set, matching
// the identifiers found in existing reflection files.
func ersatzUUID4() string {
	var b [16]byte
	rand.Read(b[:])

	const hexdigits = "0123456789abcdef"
	hex := make([]byte, 0, 32)
	for i := 15; i >= 0; i-- {
		hex = append(hex, hexdigits[b[i]>>4], hexdigits[b[i]&0x0f])
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", hex[0:8], hex[8:12], hex[12:16], hex[16:20], hex[20:32])
}
