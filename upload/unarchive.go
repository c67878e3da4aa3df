package upload

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4"
	"github.com/pivolan/go_utils"
)

var archiveExtensions = []string{".zip", ".gz", ".lz4"}

func isArchive(name string) bool {
	return go_utils.InArray(strings.ToLower(filepath.Ext(name)), archiveExtensions)
}

// Unpack returns the file inside an archive. Zip archives yield their
// largest file; anything that is not an archive is returned unchanged.
// limit caps the unpacked size, 0 means no cap.
func Unpack(f File, limit int64) (File, error) {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".zip":
		return unpackZipArchive(f, limit)
	case ".gz":
		gr, err := gzip.NewReader(bytes.NewReader(f.Data))
		if err != nil {
			return File{}, fmt.Errorf("open gzip %s: %w", f.Name, err)
		}
		defer gr.Close()
		return readAll(trimExt(f.Name), gr, limit)
	case ".lz4":
		return readAll(trimExt(f.Name), lz4.NewReader(bytes.NewReader(f.Data)), limit)
	}
	return f, nil
}

func unpackZipArchive(f File, limit int64) (File, error) {
	r, err := zip.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return File{}, fmt.Errorf("open zip %s: %w", f.Name, err)
	}

	// Find largest file in archive
	var largestFile *zip.File
	var largestSize uint64
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if largestFile == nil || zf.UncompressedSize64 > largestSize {
			largestFile = zf
			largestSize = zf.UncompressedSize64
		}
	}
	if largestFile == nil {
		return File{}, fmt.Errorf("zip %s is empty: %w", f.Name, ErrRejected)
	}

	rc, err := largestFile.Open()
	if err != nil {
		return File{}, fmt.Errorf("open %s in %s: %w", largestFile.Name, f.Name, err)
	}
	defer rc.Close()
	return readAll(filepath.Base(largestFile.Name), rc, limit)
}

func readAll(name string, r io.Reader, limit int64) (File, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("unpack %s: %w", name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return File{}, fmt.Errorf("%s is larger than %d bytes: %w", name, limit, ErrTooLarge)
	}
	return File{Name: name, ContentType: ContentTypeFor(name), Data: data}, nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
