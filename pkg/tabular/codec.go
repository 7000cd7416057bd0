// Package tabular reads input tables and writes result tables in the formats
// the classifier accepts, selected by file extension.
package tabular

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/domain"
)

type Format string

const outputFileMode = 0o644

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

type Codec interface {
	Format() Format
	Extensions() []string
	Decode(r io.Reader) (domain.Table, error)
	Encode(w io.Writer, table domain.ResultTable) error
}

// Registry maps file extensions to codecs. Paths with an unknown extension
// use the fallback format.
type Registry struct {
	codecs   map[Format]Codec
	byExt    map[string]Format
	fallback Format
}

func NewRegistry(fallback Format) *Registry {
	return &Registry{
		codecs:   make(map[Format]Codec),
		byExt:    make(map[string]Format),
		fallback: fallback,
	}
}

func NewDefaultRegistry() *Registry {
	registry := NewRegistry(FormatCSV)

	registry.Register(NewCSVCodec())
	registry.Register(NewTSVCodec())
	registry.Register(NewXLSXCodec())

	return registry
}

func (r *Registry) Register(codec Codec) {
	r.codecs[codec.Format()] = codec
	for _, ext := range codec.Extensions() {
		r.byExt[strings.ToLower(ext)] = codec.Format()
	}
}

func (r *Registry) Get(format Format) (Codec, error) {
	if codec, ok := r.codecs[format]; ok {
		return codec, nil
	}
	return nil, fmt.Errorf("%w: unsupported file format: %s", domain.ErrIO, format)
}

func (r *Registry) ForPath(path string) (Codec, error) {
	if format, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return r.Get(format)
	}
	return r.Get(r.fallback)
}

// ReadFile decodes the table stored at path.
func (r *Registry) ReadFile(path string) (domain.Table, error) {
	codec, err := r.ForPath(path)
	if err != nil {
		return domain.Table{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: failed to open input: %v", domain.ErrIO, err)
	}
	defer f.Close()

	table, err := codec.Decode(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// WriteFile encodes table to path, replacing any existing content. The
// table is encoded into a temporary file next to path and renamed over it,
// so a failed encode leaves path untouched and no partial file behind.
func (r *Registry) WriteFile(path string, table domain.ResultTable) error {
	codec, err := r.ForPath(path)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create output: %v", domain.ErrIO, err)
	}
	tmpPath := f.Name()

	if err := codec.Encode(f, table); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := f.Chmod(outputFileMode); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to set output permissions: %v", domain.ErrIO, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close output: %v", domain.ErrIO, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to replace output: %v", domain.ErrIO, err)
	}

	return nil
}

// FileSink writes the finished result table to Path.
type FileSink struct {
	Registry *Registry
	Path     string
}

func NewFileSink(registry *Registry, path string) *FileSink {
	return &FileSink{Registry: registry, Path: path}
}

func (s *FileSink) Write(_ context.Context, table domain.ResultTable) error {
	return s.Registry.WriteFile(s.Path, table)
}

func newRow(headers, values []string) domain.Row {
	row := make(domain.Row, len(headers))
	for i, header := range headers {
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}
		row[i] = domain.Field{Name: header, Value: value}
	}
	return row
}
