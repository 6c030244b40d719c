package models

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testManager(t *testing.T, archive []byte) *Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	m.Catalog = []Model{{Name: "vosk-model-test", URL: srv.URL + "/vosk-model-test.zip"}}
	return m
}

func TestDownloadExtractsModel(t *testing.T) {
	m := testManager(t, zipArchive(t, map[string]string{
		"vosk-model-test/am/final.mdl":   "model",
		"vosk-model-test/conf/mfcc.conf": "conf",
	}))

	var last int64
	err := m.Download(context.Background(), "vosk-model-test", func(done, total int64) { last = done })
	require.NoError(t, err)
	assert.Positive(t, last)

	ok, err := m.IsDownloaded("vosk-model-test")
	require.NoError(t, err)
	assert.True(t, ok)

	path, err := m.Path("vosk-model-test")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(path, "am", "final.mdl"))
	require.NoError(t, err)
	assert.Equal(t, "model", string(data))

	names, err := m.ListDownloaded()
	require.NoError(t, err)
	assert.Equal(t, []string{"vosk-model-test"}, names)

	// the archive is removed after extraction
	_, err = os.Stat(filepath.Join(m.Dir, "vosk-model-test.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadRejectsZipSlip(t *testing.T) {
	m := testManager(t, zipArchive(t, map[string]string{"../evil.txt": "x"}))
	err := m.Download(context.Background(), "vosk-model-test", nil)
	require.Error(t, err)
}

func TestDownloadUnknownModel(t *testing.T) {
	m := testManager(t, nil)
	require.Error(t, m.Download(context.Background(), "nope", nil))
}

func TestPathAcceptsDirectory(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := m.Path(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	_, err = m.Path("vosk-model-missing")
	require.Error(t, err)
}

func TestListDownloadedEmpty(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	names, err := m.ListDownloaded()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDefaultModelIsInCatalog(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, m.Find(DefaultModelName))
}
