// Package media stores post and listing images in object storage and
// hands back the URLs the API expects in post bodies.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"communityhub/validators"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const maxUploadSize = 20 << 20

type Config struct {
	Address     string `mapstructure:"address"`
	AccessKeyID string `mapstructure:"accessKeyID"`
	SecretKey   string `mapstructure:"secretKey"`
	Bucket      string `mapstructure:"bucket"`
	Secure      bool   `mapstructure:"secure"`
	// PublicURL overrides the base of returned object URLs.
	PublicURL string `mapstructure:"publicURL"`
}

func (c Config) Enabled() bool {
	return c.Address != ""
}

// objectStore is the subset of *minio.Client the uploader uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Uploader struct {
	store   objectStore
	bucket  string
	baseURL string
	log     *zap.Logger
}

func NewUploader(cfg Config, log *zap.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.Address, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	base := cfg.PublicURL
	if base == "" {
		base = client.EndpointURL().String()
	}
	return newUploader(client, cfg.Bucket, base, log), nil
}

func newUploader(store objectStore, bucket, baseURL string, log *zap.Logger) *Uploader {
	if bucket == "" {
		bucket = "post-media"
	}
	return &Uploader{store: store, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// Upload stores the bytes read from r and returns their public URL. When
// hash is non-empty the data must match it (hex sha256).
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader, hash string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("upload %s is empty", name)
	}
	if len(data) > maxUploadSize {
		return "", fmt.Errorf("upload %s exceeds %d bytes", name, maxUploadSize)
	}
	if hash != "" {
		if err := validators.ValidateData(data, hash); err != nil {
			return "", err
		}
	}

	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	objectName := objectName(name, contentType)
	info, err := u.store.PutObject(ctx, u.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("store %s: %w", objectName, err)
	}
	u.log.Info("uploaded media", zap.String("object", objectName), zap.Int64("size", info.Size))
	return u.baseURL + "/" + u.bucket + "/" + objectName, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	exists, err := u.store.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.store.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	return nil
}

// objectName keeps the upload unique and gives it the extension of its
// detected content type.
func objectName(name, contentType string) string {
	ext := path.Ext(name)
	if ext == "" {
		mediaType := strings.SplitN(contentType, ";", 2)[0]
		if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 {
			ext = "." + parts[1]
		}
	}
	return uuid.NewString() + strings.ToLower(ext)
}
