// Package loader provides access to script source content from various
// places (string, bytes, disk).
package loader

import (
	"io"
	"net/url"
)

type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetSourceURL() *url.URL
}
