package ingest

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrInvalidArchive covers a corrupt stream, a missing
	// info/index.json entry, or metadata that does not parse.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrNameMismatch means the filename prefix or the embedded package
	// name does not match the target package.
	ErrNameMismatch = errors.New("archive name does not match package")
)

const indexEntryName = "info/index.json"

// ArchiveInfo is the metadata document embedded in an uploaded archive.
type ArchiveInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildNumber int    `json:"build_number"`
	Build       string `json:"build"`
	Subdir      string `json:"subdir"`

	// Raw is the document verbatim, persisted with the version record.
	Raw []byte `json:"-"`
}

// ReadArchiveInfo extracts and parses info/index.json from a compressed
// tar stream. Both bzip2 and gzip compression are accepted, sniffed from
// the stream's magic bytes.
func ReadArchiveInfo(r io.Reader) (*ArchiveInfo, error) {
	decompressed, err := decompress(r)
	if err != nil {
		return nil, err
	}

	tr := tar.NewReader(decompressed)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no %s entry", ErrInvalidArchive, indexEntryName)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}

		if strings.TrimPrefix(header.Name, "./") != indexEntryName {
			continue
		}

		raw, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}

		var info ArchiveInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("%w: bad %s: %v", ErrInvalidArchive, indexEntryName, err)
		}
		if info.Name == "" || info.Subdir == "" || info.Version == "" {
			return nil, fmt.Errorf("%w: incomplete %s", ErrInvalidArchive, indexEntryName)
		}
		info.Raw = raw

		return &info, nil
	}
}

func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	switch {
	case bytes.HasPrefix(magic, []byte("BZh")):
		return bzip2.NewReader(br), nil
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		return gz, nil
	}

	return nil, fmt.Errorf("%w: not a bzip2 or gzip stream", ErrInvalidArchive)
}
