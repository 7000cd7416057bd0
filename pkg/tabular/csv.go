package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/domain"
)

const utf8BOM = "\ufeff"

type DelimitedCodec struct {
	format     Format
	extensions []string
	delimiter  rune
}

func NewCSVCodec() *DelimitedCodec {
	return &DelimitedCodec{format: FormatCSV, extensions: []string{".csv"}, delimiter: ','}
}

func NewTSVCodec() *DelimitedCodec {
	return &DelimitedCodec{format: FormatTSV, extensions: []string{".tsv"}, delimiter: '\t'}
}

func (c *DelimitedCodec) Format() Format {
	return c.format
}

func (c *DelimitedCodec) Extensions() []string {
	return c.extensions
}

// Decode reads a header row followed by any number of data rows. Short rows
// are padded with empty values.
func (c *DelimitedCodec) Decode(r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = c.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Table{}, fmt.Errorf("%w: file is empty", domain.ErrIO)
		}
		return domain.Table{}, fmt.Errorf("%w: failed to read header: %v", domain.ErrIO, err)
	}

	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		headers[i] = strings.TrimSpace(h)
	}

	table := domain.Table{Columns: headers}
	lineNum := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: failed to parse line %d: %v", domain.ErrIO, lineNum, err)
		}

		if len(record) > len(headers) {
			return domain.Table{}, fmt.Errorf("%w: line %d has %d fields, header has %d", domain.ErrIO, lineNum, len(record), len(headers))
		}

		table.Rows = append(table.Rows, newRow(headers, record))
	}

	return table, nil
}

func (c *DelimitedCodec) Encode(w io.Writer, table domain.ResultTable) error {
	writer := csv.NewWriter(w)
	writer.Comma = c.delimiter

	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("%w: failed to write header: %v", domain.ErrIO, err)
	}

	if err := writer.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("%w: failed to write rows: %v", domain.ErrIO, err)
	}

	return nil
}
