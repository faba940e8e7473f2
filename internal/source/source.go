// Package source opens log input: files, stdin, and compressed archives.
//
// Rotated upgrade logs are commonly shipped as .gz or .zst; Open sniffs the
// magic bytes rather than trusting the extension, so a renamed archive still
// decodes.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies an input encoding.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Input is an opened log source.
type Input struct {
	io.Reader
	Name        string
	Compression Compression

	closers []func() error
}

// Close releases the decoder and the underlying file.
func (in *Input) Close() error {
	var errs []error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	in.closers = nil
	return errors.Join(errs...)
}

// Open opens path for reading. An empty path or "-" reads stdin, which the
// caller still owns; closing the Input does not close it.
func Open(path string, stdin io.Reader) (*Input, error) {
	if path == "" || path == Stdin {
		in, err := Decode(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		in.Name = "stdin"
		return in, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	in, err := Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	in.Name = path
	in.closers = append([]func() error{f.Close}, in.closers...)
	return in, nil
}

// Decode wraps r with a decompressor chosen by its leading magic bytes.
func Decode(r io.Reader) (*Input, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		rc := dec.IOReadCloser()
		return &Input{Reader: rc, Compression: Zstd, closers: []func() error{rc.Close}}, nil
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return &Input{Reader: zr, Compression: Gzip, closers: []func() error{zr.Close}}, nil
	default:
		return &Input{Reader: br, Compression: None}, nil
	}
}
