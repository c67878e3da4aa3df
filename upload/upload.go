// Package upload holds the checks a file passes before it is sent to the
// backend. Nothing here looks at the CSV content beyond its MIME type.
package upload

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pivolan/go_utils"
)

const CSVContentType = "text/csv"

var (
	// ErrRejected means the file is not a CSV. No request is sent for it.
	ErrRejected = errors.New("upload rejected: not a csv file")
	ErrNoFile   = errors.New("no file selected")
	ErrTooLarge = errors.New("file too large")
)

// File is a selected file held in memory until it is uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// declared types that say nothing, the content is sniffed instead
var genericTypes = []string{"", "application/octet-stream", "text/plain", "application/vnd.ms-excel"}

// names other clients give to text/csv
var csvTypes = []string{CSVContentType, "application/csv", "text/comma-separated-values", "text/x-csv", "application/x-csv"}

func init() {
	// в стандартной таблице mime нет .csv
	mime.AddExtensionType(".csv", CSVContentType)
}

// ContentTypeFor guesses the content type from the file extension, for
// files that come without a declared one (CLI arguments, bare documents).
func ContentTypeFor(name string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
}

// IsCSV reports whether the file is a CSV. A declared CSV type (or one of
// its aliases) is trusted, a generic or missing one falls back to content sniffing.
func IsCSV(f File) bool {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}
	if go_utils.InArray(declared, csvTypes) {
		return true
	}
	if go_utils.InArray(declared, genericTypes) {
		return mimetype.Detect(f.Data).Is(CSVContentType)
	}
	return false
}

// Prepare unpacks archives and runs the CSV check. The returned file always
// carries the text/csv content type.
func Prepare(f File, limit int64) (File, error) {
	if f.Name == "" && len(f.Data) == 0 {
		return File{}, ErrNoFile
	}
	if limit > 0 && int64(len(f.Data)) > limit {
		return File{}, fmt.Errorf("%s is larger than %d bytes: %w", f.Name, limit, ErrTooLarge)
	}
	if isArchive(f.Name) {
		unpacked, err := Unpack(f, limit)
		if err != nil {
			return File{}, err
		}
		// the archive's own type says nothing about its content
		f = unpacked
	}
	if !IsCSV(f) {
		return File{}, fmt.Errorf("%s: %w", f.Name, ErrRejected)
	}
	f.ContentType = CSVContentType
	return f, nil
}
