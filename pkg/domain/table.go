package domain

import "strconv"

const (
	ColumnCategory   = "category"
	ColumnConfidence = "confidence"
	ColumnReason     = "reason"
)

// ResultColumns are appended after the input columns, in this order.
var ResultColumns = []string{ColumnCategory, ColumnConfidence, ColumnReason}

type Field struct {
	Name  string
	Value string
}

// Row keeps the input columns in their original order.
type Row []Field

func (r Row) Value(name string) (string, bool) {
	for _, field := range r {
		if field.Name == name {
			return field.Value, true
		}
	}

	return "", false
}

type Table struct {
	Columns []string
	Rows    []Row
}

type OutputRow struct {
	row    Row
	result ClassificationResult
}

func NewOutputRow(row Row, result ClassificationResult) OutputRow {
	copied := make(Row, len(row))
	copy(copied, row)

	return OutputRow{row: copied, result: result}
}

func (o OutputRow) Row() Row {
	copied := make(Row, len(o.row))
	copy(copied, o.row)

	return copied
}

func (o OutputRow) Result() ClassificationResult {
	return o.result
}

// ResultTable is the augmented table: input columns first, then the result
// columns that the input did not already have.
type ResultTable struct {
	Columns []string
	Rows    []OutputRow
}

func NewResultTable(inputColumns []string) ResultTable {
	columns := make([]string, len(inputColumns), len(inputColumns)+len(ResultColumns))
	copy(columns, inputColumns)

	for _, name := range ResultColumns {
		if indexOf(columns, name) < 0 {
			columns = append(columns, name)
		}
	}

	return ResultTable{Columns: columns}
}

// Cells returns the row aligned with t.Columns. Result columns that already
// existed in the input are overwritten in place. Confidence is a float64,
// everything else a string.
func (t ResultTable) Cells(o OutputRow) []any {
	cells := make([]any, len(t.Columns))
	for i := range cells {
		cells[i] = ""
	}

	for i, field := range o.row {
		if i < len(cells) {
			cells[i] = field.Value
		}
	}

	if i := indexOf(t.Columns, ColumnCategory); i >= 0 {
		cells[i] = o.result.Category
	}
	if i := indexOf(t.Columns, ColumnConfidence); i >= 0 {
		cells[i] = o.result.Confidence
	}
	if i := indexOf(t.Columns, ColumnReason); i >= 0 {
		cells[i] = o.result.Reason
	}

	return cells
}

// Records renders every row as strings aligned with t.Columns.
func (t ResultTable) Records() [][]string {
	records := make([][]string, len(t.Rows))

	for i, row := range t.Rows {
		cells := t.Cells(row)
		record := make([]string, len(cells))

		for j, cell := range cells {
			switch v := cell.(type) {
			case float64:
				record[j] = FormatConfidence(v)
			case string:
				record[j] = v
			}
		}

		records[i] = record
	}

	return records
}

func FormatConfidence(confidence float64) string {
	return strconv.FormatFloat(confidence, 'f', -1, 64)
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}

	return -1
}
