package storage_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundenmagnet/kundenmagnet/internal/storage"
)

type fakeS3 struct {
	putKeys    []string
	deleteKeys []string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putKeys = append(f.putKeys, *params.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteKeys = append(f.deleteKeys, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newPhotoStore(t *testing.T, client storage.S3Client) *storage.PhotoStore {
	t.Helper()

	store, err := storage.NewPhotoStore(context.Background(), storage.Config{
		Bucket:  "km-photos",
		Region:  "eu-central-1",
		BaseURL: "https://cdn.kundenmagnet.app",
	}, storage.WithClient(client))
	require.NoError(t, err)
	return store
}

func TestPhotoStoreUpload(t *testing.T) {
	t.Parallel()

	t.Run("uploads and returns public URL", func(t *testing.T) {
		t.Parallel()

		client := &fakeS3{}
		store := newPhotoStore(t, client)

		tenantID, testimonialID := uuid.New(), uuid.New()
		url, err := store.Upload(context.Background(), tenantID, testimonialID, []byte("jpeg-bytes"), "image/jpeg")
		require.NoError(t, err)

		wantKey := "tenants/" + tenantID.String() + "/testimonials/" + testimonialID.String() + ".jpg"
		assert.Equal(t, "https://cdn.kundenmagnet.app/"+wantKey, url)
		require.Len(t, client.putKeys, 1)
		assert.Equal(t, wantKey, client.putKeys[0])
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		t.Parallel()

		store := newPhotoStore(t, &fakeS3{})
		_, err := store.Upload(context.Background(), uuid.New(), uuid.New(), []byte("gif"), "image/gif")
		assert.ErrorIs(t, err, storage.ErrUnsupportedMIMEType)
	})

	t.Run("rejects oversized photo", func(t *testing.T) {
		t.Parallel()

		store := newPhotoStore(t, &fakeS3{})
		_, err := store.Upload(context.Background(), uuid.New(), uuid.New(), make([]byte, storage.MaxPhotoSize+1), "image/png")
		assert.ErrorIs(t, err, storage.ErrPhotoTooLarge)
	})
}

func TestPhotoStoreDelete(t *testing.T) {
	t.Parallel()

	t.Run("deletes by public URL", func(t *testing.T) {
		t.Parallel()

		client := &fakeS3{}
		store := newPhotoStore(t, client)

		url, err := store.Upload(context.Background(), uuid.New(), uuid.New(), []byte("png"), "image/png")
		require.NoError(t, err)

		require.NoError(t, store.Delete(context.Background(), url))
		require.Len(t, client.deleteKeys, 1)
		assert.Equal(t, client.putKeys[0], client.deleteKeys[0])
	})

	t.Run("foreign URLs ignored", func(t *testing.T) {
		t.Parallel()

		client := &fakeS3{}
		store := newPhotoStore(t, client)

		require.NoError(t, store.Delete(context.Background(), "https://elsewhere.example.com/x.jpg"))
		assert.Empty(t, client.deleteKeys)
	})
}
