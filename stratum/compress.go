package stratum

import (
	"compress/gzip"
	"io"
	"net/http"

	"github.com/klauspost/compress/zstd"
)

// DecodeBody wraps resp.Body with a decompressor matching the response's
// Content-Encoding, for objects that were stored compressed. Unrecognized
// or absent encodings return the body untouched. Closing the returned
// reader closes the underlying body.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return &decodedBody{
			Reader: zr,
			closers: []io.Closer{zr.IOReadCloser(), resp.Body},
		}, nil
	default:
		return resp.Body, nil
	}
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
