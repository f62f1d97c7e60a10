package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"communityhub/validators"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjects struct {
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if !f.buckets[bucket] {
		return minio.UploadInfo{}, errors.New("no such bucket")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[object] = data
	f.types[object] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

var pngHeader = "\x89PNG\r\n\x1a\n0000"

func TestUpload_StoresAndReturnsURL(t *testing.T) {
	objects := newFakeObjects()
	u := newUploader(objects, "", "http://minio:9000/", zap.NewNop())

	url, err := u.Upload(context.Background(), "photo", strings.NewReader(pngHeader), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://minio:9000/post-media/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	require.Len(t, objects.objects, 1)
	for name, data := range objects.objects {
		assert.Equal(t, pngHeader, string(data))
		assert.Equal(t, "image/png", objects.types[name])
	}
}

func TestUpload_VerifiesHash(t *testing.T) {
	u := newUploader(newFakeObjects(), "media", "http://minio", zap.NewNop())

	_, err := u.Upload(context.Background(), "a.png", strings.NewReader(pngHeader), "00ff")
	assert.ErrorIs(t, err, validators.ErrHashMismatch)

	sum := sha256.Sum256([]byte(pngHeader))
	_, err = u.Upload(context.Background(), "a.png", strings.NewReader(pngHeader), hex.EncodeToString(sum[:]))
	assert.NoError(t, err)
}

func TestUpload_RejectsEmpty(t *testing.T) {
	u := newUploader(newFakeObjects(), "media", "http://minio", zap.NewNop())
	_, err := u.Upload(context.Background(), "a.png", strings.NewReader(""), "")
	assert.Error(t, err)
}

func TestObjectName_KeepsExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(objectName("Cover.JPG", "image/jpeg"), ".jpg"))
	assert.True(t, strings.HasSuffix(objectName("blob", "text/plain; charset=utf-8"), ".plain"))
}
