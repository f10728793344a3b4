package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caldera-store/caldera/pkg/models"
	"github.com/caldera-store/caldera/pkg/repositories"
	"github.com/sirupsen/logrus"
)

// Mirror pushes a stored archive to a secondary object store. Failures
// are logged, never fatal to the upload.
type Mirror interface {
	Put(ctx context.Context, objectName, filePath string) error
}

// Pipeline ingests uploaded archives: validate, store, record. Each file
// is processed independently; a failure aborts that file only, committed
// versions stay committed.
type Pipeline struct {
	root     string
	packages repositories.IPackagesRepository
	indexer  Indexer
	mirror   Mirror
}

func NewPipeline(root string, packages repositories.IPackagesRepository, indexer Indexer, mirror Mirror) *Pipeline {
	return &Pipeline{root: root, packages: packages, indexer: indexer, mirror: mirror}
}

// ProcessFile runs one archive through the state machine and returns the
// recorded version. The reader must support seeking: the stream is read
// once for metadata and again for the raw bytes.
func (p *Pipeline) ProcessFile(ctx context.Context, channel string, pkg *models.Package, filename string, r io.ReadSeeker, uploaderID uint) (*models.PackageVersion, error) {
	info, err := ReadArchiveInfo(r)
	if err != nil {
		return nil, err
	}

	prefix := strings.SplitN(filename, "-", 2)[0]
	if prefix != pkg.Name || info.Name != pkg.Name {
		return nil, fmt.Errorf("%w: %s is not %s", ErrNameMismatch, filename, pkg.Name)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	destination, err := p.store(channel, info.Subdir, filename, r)
	if err != nil {
		return nil, err
	}

	version := &models.PackageVersion{
		PackageID:   pkg.ID,
		Platform:    info.Subdir,
		Version:     info.Version,
		BuildNumber: info.BuildNumber,
		BuildString: info.Build,
		Filename:    filename,
		Info:        string(info.Raw),
		UploaderID:  uploaderID,
	}
	if err := p.packages.CreateVersion(version); err != nil {
		return nil, err
	}

	if p.mirror != nil {
		objectName := filepath.ToSlash(filepath.Join(channel, info.Subdir, filename))
		if err := p.mirror.Put(ctx, objectName, destination); err != nil {
			logrus.Warnf("mirror upload failed for %s: %v", objectName, err)
		}
	}

	return version, nil
}

// Reindex triggers index regeneration over the channel's storage root.
func (p *Pipeline) Reindex(ctx context.Context, channel string) error {
	return p.indexer.Index(ctx, p.ChannelDir(channel))
}

func (p *Pipeline) ChannelDir(channel string) string {
	return filepath.Join(p.root, channel)
}

// store writes the archive under <root>/<channel>/<subdir>/<filename>.
// The bytes land in a temporary file first and are renamed into place so
// a half-written archive is never visible to index regeneration. An
// existing file at the destination is overwritten, last writer wins.
func (p *Pipeline) store(channel, subdir, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(p.root, channel, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	destination := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), destination); err != nil {
		return "", err
	}

	return destination, nil
}
