package loader

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dynrun/dynrun/internal/helpers"
)

type FromDisk struct {
	path      string
	sourceURL *url.URL
}

func NewFromDisk(path string) (*FromDisk, error) {
	path = strings.TrimPrefix(path, "file://")

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, path)
	}

	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: relative paths are not supported", ErrScriptNotAvailable)
	}

	path = filepath.Clean(path)
	if path == "" || path == "." || path == "/" {
		return nil, fmt.Errorf("%w: path is empty or invalid", ErrScriptNotAvailable)
	}

	u, err := url.Parse("file://" + path)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %w", err)
	}

	return &FromDisk{
		path:      path,
		sourceURL: u,
	}, nil
}

func (l *FromDisk) String() string {
	noChkSum := fmt.Sprintf("loader.FromDisk{Path: %s}", l.path)

	reader, err := l.GetReader()
	if err != nil {
		return noChkSum
	}
	defer func() { _ = reader.Close() }()

	chksum, err := helpers.SHA256Reader(reader)
	if err != nil {
		return noChkSum
	}

	return fmt.Sprintf("loader.FromDisk{Path: %s, SHA256: %s}", l.path, chksum[:8])
}

func (l *FromDisk) GetReader() (io.ReadCloser, error) {
	return os.Open(l.path)
}

// GetSourceURL returns the source URL of the script.
func (l *FromDisk) GetSourceURL() *url.URL {
	return l.sourceURL
}
