// Package loader handles program image loading operations.
package loader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/cespare/xxhash"
	"github.com/retroenv/chip8vm/internal/vm"
)

// maxExtractSize limits the decompressed size of archived images. It is one
// byte more than memory so that oversized images are still rejected on load.
const maxExtractSize = vm.MemorySize + 1

var (
	// ErrEmptyImage is returned for program images without any content.
	ErrEmptyImage = errors.New("empty program image")
	// ErrEmptyArchive is returned for archives that do not contain a file.
	ErrEmptyArchive = errors.New("archive contains no file")
)

// Image is a raw program image ready to be copied into machine memory.
type Image struct {
	Name     string // file name, the archive member name for archives
	Data     []byte
	Checksum uint64 // xxhash of Data
}

// Loader handles loading program images from disk.
type Loader struct{}

// New creates a new program image loader.
func New() *Loader {
	return &Loader{}
}

// Load reads a program image file. Files with a .gz, .zip or .7z extension
// are decompressed, the first file of an archive is used as image.
func (l *Loader) Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return l.LoadFromBytes(filepath.Base(path), data)
}

// LoadFromBytes returns the program image for the file content data, using
// name to detect the archive format.
func (l *Loader) LoadFromBytes(name string, data []byte) (*Image, error) {
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		data, err = extractGzip(data)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	case ".zip":
		name, data, err = extractZip(data)
	case ".7z":
		name, data, err = extract7z(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	return &Image{
		Name:     name,
		Data:     data,
		Checksum: xxhash.Sum64(data),
	}, nil
}

func extractGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer func() { _ = reader.Close() }()

	content, err := io.ReadAll(io.LimitReader(reader, maxExtractSize))
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip stream: %w", err)
	}
	return content, nil
}

func extractZip(data []byte) (string, []byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("opening zip archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		content, err := readArchiveFile(file.Open)
		if err != nil {
			return "", nil, fmt.Errorf("reading zip member %s: %w", file.Name, err)
		}
		return file.Name, content, nil
	}
	return "", nil, ErrEmptyArchive
}

func extract7z(data []byte) (string, []byte, error) {
	reader, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("opening 7z archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		content, err := readArchiveFile(file.Open)
		if err != nil {
			return "", nil, fmt.Errorf("reading 7z member %s: %w", file.Name, err)
		}
		return file.Name, content, nil
	}
	return "", nil, ErrEmptyArchive
}

func readArchiveFile(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(io.LimitReader(rc, maxExtractSize))
}
