package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
)

// Loader reads one tabular source format into a Table.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt Options) (*dataset.Table, error)
}

// Options controls how sources are read.
type Options struct {
	// Delimiter for delimited text. If 0, chosen from the file suffix.
	Delimiter rune
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Sheet selects an XLSX worksheet by name; SheetIndex (1-based) is used otherwise.
	Sheet      string
	SheetIndex int
}

// DefaultOptions returns loader defaults.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a source format is not supported.
var ErrUnsupported = errors.New("unsupported source format")

// FormatError reports an unsupported or malformed source.
type FormatError struct {
	Path string
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	name := filepath.Base(e.Path)
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", name, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Supported reports whether some registered loader accepts the path suffix.
func Supported(path string) bool {
	return lookup(path) != nil
}

func lookup(path string) Loader {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l
		}
	}
	return nil
}

// Load selects a loader by suffix and reads the whole source. On error no
// table is returned.
func Load(path string, opt Options) (*dataset.Table, error) {
	l := lookup(path)
	if l == nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))}
	}
	t, err := l.Load(path, opt)
	if err != nil {
		return nil, err
	}
	t.InferKinds()
	return t, nil
}

// headerNames trims names, fills blanks and de-duplicates repeats with a
// numeric suffix so every column name is unique.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	count := make(map[string]int)
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				count[base]++
				name = fmt.Sprintf("%s.%d", base, count[base])
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func hasSuffix(path string, suffixes ...string) bool {
	name := strings.ToLower(path)
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(jsonLoader{})
	Register(xlsxLoader{})
}
