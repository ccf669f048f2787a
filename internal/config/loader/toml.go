package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ReadFunc reads a whole file, like os.ReadFile.
type ReadFunc func(path string) ([]byte, error)

// File is a TOML file layer. A missing file is an absent layer.
type File struct {
	path string
	read ReadFunc
}

// NewFile returns a layer for the TOML file at path. A nil read uses
// os.ReadFile.
func NewFile(path string, read ReadFunc) *File {
	if read == nil {
		read = os.ReadFile
	}
	return &File{path: path, read: read}
}

// Name returns the file path.
func (f *File) Name() string {
	return f.path
}

// Load reads and parses the file.
func (f *File) Load() (map[string]any, error) {
	data, err := f.read(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return Parse(f.path, data)
}

// Parse decodes TOML data. name labels the data in errors.
func Parse(name string, data []byte) (map[string]any, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		perr := &ParseError{File: name, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// ParseError is malformed TOML, positioned when the decoder knows where.
type ParseError struct {
	File   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.File, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
