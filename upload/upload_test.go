package upload

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/pierrec/lz4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvData = []byte("city,sales\nA,10.5\nB,20.25\n")

func TestIsCSV(t *testing.T) {
	tests := []struct {
		name string
		file File
		want bool
	}{
		{"declared csv", File{Name: "a.csv", ContentType: "text/csv", Data: []byte("x")}, true},
		{"declared csv with charset", File{Name: "a.csv", ContentType: "text/csv; charset=utf-8", Data: csvData}, true},
		{"sniffed csv", File{Name: "a.csv", ContentType: "application/octet-stream", Data: csvData}, true},
		{"no type sniffed csv", File{Name: "a.csv", Data: csvData}, true},
		{"declared json", File{Name: "a.json", ContentType: "application/json", Data: csvData}, false},
		{"png", File{Name: "a.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}, false},
		{"plain prose", File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("just some words")}, false},
		{"csv alias", File{Name: "tg.csv", ContentType: "text/comma-separated-values", Data: []byte("a;b\n1;2\n")}, true},
		{"csv alias upper case", File{Name: "a.csv", ContentType: "Application/CSV", Data: []byte("a\n1\n")}, true},
		{"extension type single column", File{Name: "one.csv", ContentType: ContentTypeFor("one.csv"), Data: []byte("a\n1\n2\n")}, true},
		{"extension type semicolons", File{Name: "semi.csv", ContentType: ContentTypeFor("semi.csv"), Data: []byte("a;b\n1;2\n")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCSV(tt.file))
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.True(t, strings.HasPrefix(ContentTypeFor("data/Sales.CSV"), CSVContentType))
	assert.Equal(t, "", ContentTypeFor("noext"))
}

func TestPrepareRejects(t *testing.T) {
	_, err := Prepare(File{Name: "a.json", ContentType: "application/json", Data: []byte(`{"a":1}`)}, 0)
	assert.ErrorIs(t, err, ErrRejected)

	_, err = Prepare(File{}, 0)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = Prepare(File{Name: "a.csv", ContentType: "text/csv", Data: csvData}, 4)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPrepareArchives(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(csvData)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var lz bytes.Buffer
	lw := lz4.NewWriter(&lz)
	_, err = lw.Write(csvData)
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	var zb bytes.Buffer
	zw := zip.NewWriter(&zb)
	small, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = small.Write([]byte("hi"))
	require.NoError(t, err)
	big, err := zw.Create("data/sales.csv")
	require.NoError(t, err)
	_, err = big.Write(csvData)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name     string
		file     File
		wantName string
	}{
		{"gzip", File{Name: "sales.csv.gz", ContentType: "application/gzip", Data: gz.Bytes()}, "sales.csv"},
		{"lz4", File{Name: "sales.csv.lz4", Data: lz.Bytes()}, "sales.csv"},
		{"zip takes largest file", File{Name: "bundle.ZIP", ContentType: "application/zip", Data: zb.Bytes()}, "sales.csv"},
		{"plain csv", File{Name: "sales.csv", ContentType: "text/csv", Data: csvData}, "sales.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Prepare(tt.file, 1<<20)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, f.Name)
			assert.Equal(t, CSVContentType, f.ContentType)
			assert.Equal(t, csvData, f.Data)
		})
	}
}

func TestPrepareSemicolonArchive(t *testing.T) {
	semi := []byte("a;b\n1;2\n")
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(semi)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	f, err := Prepare(File{Name: "semi.csv.gz", Data: gz.Bytes()}, 0)
	require.NoError(t, err)
	assert.Equal(t, "semi.csv", f.Name)
	assert.Equal(t, semi, f.Data)
}

func TestUnpackLimit(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(bytes.Repeat(csvData, 100))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	_, err = Unpack(File{Name: "big.csv.gz", Data: gz.Bytes()}, 64)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUnpackBrokenArchive(t *testing.T) {
	_, err := Unpack(File{Name: "x.zip", Data: []byte("not a zip")}, 0)
	assert.Error(t, err)

	f, err := Unpack(File{Name: "x.csv", Data: csvData}, 0)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", f.Name)
}
