package ingest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive produces a gzip-compressed tarball with the given entries.
func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

const goodIndexJSON = `{"name":"numerics","version":"1.2.0","build_number":3,"build":"py311_3","subdir":"linux-64"}`

func TestReadArchiveInfo(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"info/recipe.yaml": "noise",
		"info/index.json":  goodIndexJSON,
	})

	info, err := ReadArchiveInfo(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "numerics", info.Name)
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, 3, info.BuildNumber)
	assert.Equal(t, "py311_3", info.Build)
	assert.Equal(t, "linux-64", info.Subdir)
	assert.JSONEq(t, goodIndexJSON, string(info.Raw))
}

func TestReadArchiveInfoDotSlashEntry(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"./info/index.json": goodIndexJSON,
	})

	info, err := ReadArchiveInfo(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "numerics", info.Name)
}

func TestReadArchiveInfoMissingEntry(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"info/recipe.yaml": "noise",
	})

	_, err := ReadArchiveInfo(bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrInvalidArchive))
}

func TestReadArchiveInfoBadJSON(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"info/index.json": "{not json",
	})

	_, err := ReadArchiveInfo(bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrInvalidArchive))
}

func TestReadArchiveInfoIncompleteMetadata(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"info/index.json": `{"name":"numerics"}`,
	})

	_, err := ReadArchiveInfo(bytes.NewReader(data))
	require.True(t, errors.Is(err, ErrInvalidArchive))
}

func TestReadArchiveInfoGarbageStream(t *testing.T) {
	_, err := ReadArchiveInfo(bytes.NewReader([]byte("definitely not a tarball")))
	require.True(t, errors.Is(err, ErrInvalidArchive))
}

func TestReadArchiveInfoEmptyStream(t *testing.T) {
	_, err := ReadArchiveInfo(bytes.NewReader(nil))
	require.True(t, errors.Is(err, ErrInvalidArchive))
}
