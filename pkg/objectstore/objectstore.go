package objectstore

import (
	"context"

	"github.com/caldera-store/caldera/config/configkey"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store mirrors ingested archives into a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
}

func New() (*Store, error) {
	accessKey := viper.GetString(configkey.MinioAccessKey)
	secretKey := viper.GetString(configkey.MinioSecretKey)
	minioHost := viper.GetString(configkey.MinioHost)

	client, err := minio.New(minioHost, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: viper.GetBool(configkey.MinioSecure),
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		client: client,
		bucket: viper.GetString(configkey.MinioBucket),
	}, nil
}

// EnsureBucket creates the mirror bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *Store) Put(ctx context.Context, objectName, filePath string) error {
	uploadInfo, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{})
	if err != nil {
		return err
	}

	logrus.Debugf("mirrored %s (%d bytes)", uploadInfo.Key, uploadInfo.Size)
	return nil
}
