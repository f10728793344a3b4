package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caldera-store/caldera/pkg/models"
	"github.com/caldera-store/caldera/pkg/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubIndexer struct {
	calls []string
	err   error
}

func (s *stubIndexer) Index(_ context.Context, channelDir string) error {
	s.calls = append(s.calls, channelDir)
	return s.err
}

type stubMirror struct {
	objects map[string]string
	err     error
}

func (s *stubMirror) Put(_ context.Context, objectName, filePath string) error {
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = map[string]string{}
	}
	s.objects[objectName] = filePath
	return nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	indexer  *stubIndexer
	db       *gorm.DB
	root     string
	pkg      *models.Package
	uploader models.User
}

func newPipelineFixture(t *testing.T, mirror Mirror) *pipelineFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Profile{},
		&models.Channel{}, &models.Package{},
		&models.ChannelMember{}, &models.PackageMember{}, &models.PackageVersion{},
	))

	uploader := models.User{UserId: uuid.New().String(), Username: "alice", Profile: models.Profile{Name: "alice"}}
	require.NoError(t, db.Create(&uploader).Error)

	channel := models.Channel{Name: "science"}
	require.NoError(t, db.Create(&channel).Error)
	pkg := models.Package{Name: "numerics", ChannelID: channel.ID}
	require.NoError(t, db.Create(&pkg).Error)

	indexer := &stubIndexer{}
	root := t.TempDir()

	return &pipelineFixture{
		pipeline: NewPipeline(root, repositories.NewPackagesRepository(db), indexer, mirror),
		indexer:  indexer,
		db:       db,
		root:     root,
		pkg:      &pkg,
		uploader: uploader,
	}
}

func TestProcessFileStoresAndRecords(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	data := buildArchive(t, map[string]string{"info/index.json": goodIndexJSON})
	filename := "numerics-1.2.0-py311_3.tar.bz2"

	version, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, filename, bytes.NewReader(data), fx.uploader.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", version.Version)
	assert.Equal(t, "linux-64", version.Platform)
	assert.Equal(t, fx.uploader.ID, version.UploaderID)

	stored, err := os.ReadFile(filepath.Join(fx.root, "science", "linux-64", filename))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	var count int64
	require.NoError(t, fx.db.Model(&models.PackageVersion{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProcessFileNameMismatch(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	data := buildArchive(t, map[string]string{"info/index.json": goodIndexJSON})

	// filename prefix does not name the target package
	_, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, "other-1.2.0.tar.bz2", bytes.NewReader(data), fx.uploader.ID)
	require.True(t, errors.Is(err, ErrNameMismatch))

	// embedded metadata disagrees even though the filename matches
	rogue := buildArchive(t, map[string]string{
		"info/index.json": `{"name":"other","version":"1.0","subdir":"linux-64"}`,
	})
	_, err = fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, "numerics-1.0.tar.bz2", bytes.NewReader(rogue), fx.uploader.ID)
	require.True(t, errors.Is(err, ErrNameMismatch))

	entries, err := os.ReadDir(fx.root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var count int64
	require.NoError(t, fx.db.Model(&models.PackageVersion{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestProcessFileDuplicateVersion(t *testing.T) {
	fx := newPipelineFixture(t, nil)
	data := buildArchive(t, map[string]string{"info/index.json": goodIndexJSON})
	filename := "numerics-1.2.0-py311_3.tar.bz2"

	_, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, filename, bytes.NewReader(data), fx.uploader.ID)
	require.NoError(t, err)

	_, err = fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, filename, bytes.NewReader(data), fx.uploader.ID)
	require.True(t, errors.Is(err, repositories.ErrConflict))

	// the stored archive survives, last writer wins on disk
	_, err = os.Stat(filepath.Join(fx.root, "science", "linux-64", filename))
	require.NoError(t, err)
}

func TestProcessFileInvalidArchiveLeavesNoTrace(t *testing.T) {
	fx := newPipelineFixture(t, nil)

	_, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, "numerics-1.0.tar.bz2", bytes.NewReader([]byte("junk")), fx.uploader.ID)
	require.True(t, errors.Is(err, ErrInvalidArchive))

	entries, err := os.ReadDir(fx.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessFileMirrorFailureIsNotFatal(t *testing.T) {
	fx := newPipelineFixture(t, &stubMirror{err: errors.New("bucket down")})
	data := buildArchive(t, map[string]string{"info/index.json": goodIndexJSON})

	_, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, "numerics-1.2.0-py311_3.tar.bz2", bytes.NewReader(data), fx.uploader.ID)
	require.NoError(t, err)
}

func TestProcessFileMirrorReceivesObject(t *testing.T) {
	mirror := &stubMirror{}
	fx := newPipelineFixture(t, mirror)
	data := buildArchive(t, map[string]string{"info/index.json": goodIndexJSON})
	filename := "numerics-1.2.0-py311_3.tar.bz2"

	_, err := fx.pipeline.ProcessFile(context.Background(), "science", fx.pkg, filename, bytes.NewReader(data), fx.uploader.ID)
	require.NoError(t, err)
	assert.Contains(t, mirror.objects, "science/linux-64/"+filename)
}

func TestReindexUsesChannelDir(t *testing.T) {
	fx := newPipelineFixture(t, nil)

	require.NoError(t, fx.pipeline.Reindex(context.Background(), "science"))
	require.Len(t, fx.indexer.calls, 1)
	assert.Equal(t, filepath.Join(fx.root, "science"), fx.indexer.calls[0])
}
