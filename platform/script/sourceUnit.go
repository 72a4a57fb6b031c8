// Package script holds the source-side entities of the pipeline: a source
// unit pairs a logical file name with the text handed to a backend compiler.
package script

import (
	"fmt"
	"io"

	"github.com/dynrun/dynrun/platform/script/loader"
)

// SourceUnit is one compilation input. It is immutable once created; the
// engine builds one per compile request and discards it afterwards.
type SourceUnit struct {
	// Name is the logical file name, used in diagnostics. It does not need
	// to exist on disk.
	Name string

	// Text is the raw source content. For binary-format backends this is the
	// binary payload.
	Text []byte
}

// NewSourceUnit reads the full content from a loader and binds it to the
// given logical name.
func NewSourceUnit(name string, ld loader.Loader) (SourceUnit, error) {
	if ld == nil {
		return SourceUnit{}, fmt.Errorf("loader is nil")
	}
	reader, err := ld.GetReader()
	if err != nil {
		return SourceUnit{}, fmt.Errorf("failed to get reader from loader: %w", err)
	}
	text, err := io.ReadAll(reader)
	if cerr := reader.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return SourceUnit{}, fmt.Errorf("failed to read source: %w", err)
	}
	return SourceUnit{Name: name, Text: text}, nil
}

func (u SourceUnit) String() string {
	return fmt.Sprintf("script.SourceUnit{Name: %s, Bytes: %d}", u.Name, len(u.Text))
}
