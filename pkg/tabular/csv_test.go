package tabular

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() domain.ResultTable {
	table := domain.NewResultTable([]string{"id", "text"})
	table.Rows = []domain.OutputRow{
		domain.NewOutputRow(
			domain.Row{{Name: "id", Value: "1"}, {Name: "text", Value: "New GPU architecture announced"}},
			domain.ClassificationResult{Category: "technology", Confidence: 0.95, Reason: "hardware, launch"},
		),
		domain.NewOutputRow(
			domain.Row{{Name: "id", Value: "2"}, {Name: "text", Value: `Final score "3-1"`}},
			domain.ClassificationResult{Category: "sports", Confidence: 1, Reason: "match result"},
		),
	}
	return table
}

func TestCSVCodec_Decode(t *testing.T) {
	input := "\ufeffid, text\n1,hello world\n2,\"quoted, value\"\n"

	table, err := NewCSVCodec().Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "text"}, table.Columns)
	assert.Equal(t, []domain.Row{
		{{Name: "id", Value: "1"}, {Name: "text", Value: "hello world"}},
		{{Name: "id", Value: "2"}, {Name: "text", Value: "quoted, value"}},
	}, table.Rows)
}

func TestCSVCodec_DecodeHeaderOnly(t *testing.T) {
	table, err := NewCSVCodec().Decode(strings.NewReader("id,text\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "text"}, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestCSVCodec_DecodeShortRowIsPadded(t *testing.T) {
	table, err := NewCSVCodec().Decode(strings.NewReader("id,text,tag\n1,hello\n"))
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	value, ok := table.Rows[0].Value("tag")
	assert.True(t, ok)
	assert.Equal(t, "", value)
}

func TestCSVCodec_DecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty file", input: ""},
		{name: "too many fields", input: "id\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVCodec().Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIO)
		})
	}
}

func TestCSVCodec_RoundTrip(t *testing.T) {
	results := sampleResults()

	var buf bytes.Buffer
	require.NoError(t, NewCSVCodec().Encode(&buf, results))

	decoded, err := NewCSVCodec().Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, results.Columns, decoded.Columns)
	require.Len(t, decoded.Rows, len(results.Rows))

	for i, record := range results.Records() {
		for j, column := range results.Columns {
			value, ok := decoded.Rows[i].Value(column)
			require.True(t, ok)
			assert.Equal(t, record[j], value)
		}
	}
}

func TestTSVCodec_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTSVCodec().Encode(&buf, sampleResults()))
	assert.True(t, strings.HasPrefix(buf.String(), "id\ttext\tcategory\tconfidence\treason\n"))

	decoded, err := NewTSVCodec().Decode(&buf)
	require.NoError(t, err)
	assert.Len(t, decoded.Rows, 2)
}

func TestRegistry_ReadWriteFile(t *testing.T) {
	registry := NewDefaultRegistry()
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, registry.WriteFile(path, sampleResults()))

	table, err := registry.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)

	// existing content is replaced
	empty := domain.NewResultTable([]string{"id", "text"})
	require.NoError(t, NewFileSink(registry, path).Write(context.Background(), empty))

	table, err = registry.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestRegistry_ForPath(t *testing.T) {
	registry := NewDefaultRegistry()

	tests := []struct {
		path     string
		expected Format
	}{
		{path: "data.csv", expected: FormatCSV},
		{path: "DATA.TSV", expected: FormatTSV},
		{path: "book.xlsx", expected: FormatXLSX},
		{path: "notes.txt", expected: FormatCSV},
		{path: "noextension", expected: FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			codec, err := registry.ForPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, codec.Format())
		})
	}
}

func TestRegistry_ReadMissingFile(t *testing.T) {
	_, err := NewDefaultRegistry().ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, domain.ErrIO)
}

type failingCodec struct{}

func (failingCodec) Format() Format       { return "broken" }
func (failingCodec) Extensions() []string { return []string{".broken"} }

func (failingCodec) Decode(io.Reader) (domain.Table, error) {
	return domain.Table{}, nil
}

func (failingCodec) Encode(w io.Writer, _ domain.ResultTable) error {
	if _, err := io.WriteString(w, "id,text\n1,"); err != nil {
		return err
	}
	return fmt.Errorf("%w: disk full", domain.ErrIO)
}

func TestRegistry_WriteFileEncodeFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.broken")

	registry := NewDefaultRegistry()
	registry.Register(failingCodec{})

	err := registry.WriteFile(path, sampleResults())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRegistry_WriteFileEncodeFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.broken")
	require.NoError(t, os.WriteFile(path, []byte("previous results\n"), 0o644))

	registry := NewDefaultRegistry()
	registry.Register(failingCodec{})

	require.Error(t, registry.WriteFile(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous results\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRegistry_WriteFileReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new file\n"), 0o644))

	require.NoError(t, NewDefaultRegistry().WriteFile(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,text,category,confidence,reason\n"))
	assert.NotContains(t, string(data), "stale")
}

func TestRegistry_WriteUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.csv")

	err := NewDefaultRegistry().WriteFile(path, sampleResults())
	assert.ErrorIs(t, err, domain.ErrIO)
}
