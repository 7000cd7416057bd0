package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/xuri/excelize/v2"
)

type XLSXCodec struct{}

func NewXLSXCodec() *XLSXCodec {
	return &XLSXCodec{}
}

func (c *XLSXCodec) Format() Format {
	return FormatXLSX
}

func (c *XLSXCodec) Extensions() []string {
	return []string{".xlsx"}
}

// Decode reads the first sheet. Blank rows are skipped.
func (c *XLSXCodec) Decode(r io.Reader) (domain.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: failed to open Excel file: %v", domain.ErrIO, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, fmt.Errorf("%w: Excel file has no sheets", domain.ErrIO)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: failed to read sheet: %v", domain.ErrIO, err)
	}

	if len(rows) == 0 {
		return domain.Table{}, fmt.Errorf("%w: Excel sheet is empty", domain.ErrIO)
	}

	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	table := domain.Table{Columns: headers}

	for i := 1; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		if len(rows[i]) > len(headers) {
			return domain.Table{}, fmt.Errorf("%w: row %d has %d cells, header has %d", domain.ErrIO, i+1, len(rows[i]), len(headers))
		}
		table.Rows = append(table.Rows, newRow(headers, rows[i]))
	}

	return table, nil
}

func (c *XLSXCodec) Encode(w io.Writer, table domain.ResultTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(table.Columns))
	for i, column := range table.Columns {
		header[i] = column
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		if err := setRow(f, sheet, i+2, table.Cells(row)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: failed to write Excel file: %v", domain.ErrIO, err)
	}

	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%w: failed to write row %d: %v", domain.ErrIO, rowNum, err)
	}

	return nil
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
