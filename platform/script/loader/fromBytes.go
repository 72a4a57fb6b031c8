package loader

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"github.com/dynrun/dynrun/internal/helpers"
)

// FromBytes loads source content from a byte slice, used for binary-format
// backends (WASM modules).
type FromBytes struct {
	content   []byte
	sourceURL *url.URL
}

func NewFromBytes(content []byte) (*FromBytes, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrScriptNotAvailable)
	}

	u, err := url.Parse("bytes://inline/" + helpers.SHA256Bytes(content)[:8])
	if err != nil {
		return nil, fmt.Errorf("failed to create source URL: %w", err)
	}

	return &FromBytes{
		content:   content,
		sourceURL: u,
	}, nil
}

func (l *FromBytes) String() string {
	return fmt.Sprintf("loader.FromBytes{Bytes: %d}", len(l.content))
}

func (l *FromBytes) GetReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.content)), nil
}

// GetSourceURL returns the source URL of the script.
func (l *FromBytes) GetSourceURL() *url.URL {
	return l.sourceURL
}
