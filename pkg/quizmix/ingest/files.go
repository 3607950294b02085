package ingest

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is one user-selected clip.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type pathFile struct {
	path string
}

// PathFile reads a clip from the local filesystem.
func PathFile(path string) File {
	return pathFile{path: path}
}

func (f pathFile) Name() string { return filepath.Base(f.path) }

func (f pathFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type bytesFile struct {
	name string
	data []byte
}

// BytesFile wraps clip content that is already in memory.
func BytesFile(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (f bytesFile) Name() string { return f.name }

func (f bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type multipartFile struct {
	header *multipart.FileHeader
}

// MultipartFile adapts a part of a parsed multipart upload.
func MultipartFile(fh *multipart.FileHeader) File {
	return multipartFile{header: fh}
}

func (f multipartFile) Name() string { return filepath.Base(f.header.Filename) }

func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// PathFiles is a convenience for CLI arguments.
func PathFiles(paths []string) []File {
	files := make([]File, len(paths))
	for i, p := range paths {
		files[i] = PathFile(p)
	}
	return files
}
