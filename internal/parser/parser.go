package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
)

// Options controls file loading.
type Options struct {
	// Delimiter for CSV; 0 means ','.
	Delimiter rune
	// SheetName selects an XLSX sheet by name; otherwise SheetIndex (1-based)
	// is used, and 0 means the first sheet.
	SheetName  string
	SheetIndex int
	Dataset    dataset.Options
}

// Parser turns the raw bytes of one uploaded file into a Dataset.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, content []byte, opt Options) (*dataset.Dataset, error)
}

var (
	registry []Parser
	// fallback handles any name no registered parser claims.
	fallback Parser = xlsxParser{}
)

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrEmptyFile is returned for zero-byte uploads.
var ErrEmptyFile = errors.New("file is empty")

// Load reads r fully and parses it with the parser chosen by the file name
// suffix. Names without a registered suffix are read as XLSX workbooks.
func Load(name string, r io.Reader, opt Options) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(name, data, opt)
}

// Parse is Load for content already in memory.
func Parse(name string, content []byte, opt Options) (*dataset.Dataset, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	for _, p := range registry {
		if p.CanParse(name) {
			return p.Parse(name, content, opt)
		}
	}
	return fallback.Parse(name, content, opt)
}

// LoadFile opens path and loads it under its base name.
func LoadFile(path string, opt Options) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opt)
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
