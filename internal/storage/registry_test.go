package storage_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/timmy/bucketgate/internal/storage"
	"github.com/timmy/bucketgate/internal/storage/mocks"
)

type fixture struct {
	registry *storage.Registry
	objects  *mocks.ObjectAPI
	presign  *mocks.PresignAPI
	created  atomic.Int32
}

func newFixture() *fixture {
	f := &fixture{
		objects: &mocks.ObjectAPI{},
		presign: &mocks.PresignAPI{},
	}
	f.registry = storage.NewRegistry(storage.WithClientFactory(func(cfg storage.ClientConfig) (*storage.Client, error) {
		f.created.Add(1)
		return storage.NewClient(f.objects, f.presign), nil
	}))
	return f
}

func (f *fixture) register(t *testing.T, bucket, endpoint, kmsKeyID string) *storage.BucketClient {
	t.Helper()
	entry, err := f.registry.GetOrCreate(context.Background(), storage.ClientConfig{
		Bucket:          bucket,
		Endpoint:        endpoint,
		AccessKey:       "access",
		SecretKey:       "secret",
		EncryptionKeyID: kmsKeyID,
	})
	require.NoError(t, err)
	return entry
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestGetOrCreate_FirstRegistrationWins(t *testing.T) {
	f := newFixture()

	first := f.register(t, "photos", "s3.one.example", "key-1")
	second := f.register(t, "photos", "s3.two.example", "key-2")

	assert.Same(t, first, second)
	assert.Equal(t, "s3.one.example", second.Endpoint)
	assert.Equal(t, "key-1", second.EncryptionKeyID)
	assert.EqualValues(t, 1, f.created.Load())
}

func TestGetOrCreate_EmptyBucket(t *testing.T) {
	f := newFixture()

	_, err := f.registry.GetOrCreate(context.Background(), storage.ClientConfig{Endpoint: "s3.example"})
	assert.ErrorIs(t, err, storage.ErrConfiguration)
	assert.EqualValues(t, 0, f.created.Load())
}

func TestGetOrCreate_FactoryFailure(t *testing.T) {
	boom := errors.New("no config")
	reg := storage.NewRegistry(storage.WithClientFactory(func(storage.ClientConfig) (*storage.Client, error) {
		return nil, boom
	}))

	_, err := reg.GetOrCreate(context.Background(), storage.ClientConfig{Bucket: "photos"})
	assert.ErrorIs(t, err, storage.ErrConfiguration)
	assert.ErrorIs(t, err, boom)

	_, ok := reg.Lookup("photos")
	assert.False(t, ok)
}

func TestGetOrCreate_ConcurrentFirstRegistration(t *testing.T) {
	f := newFixture()

	const callers = 64
	entries := make([]*storage.BucketClient, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := f.registry.GetOrCreate(context.Background(), storage.ClientConfig{
				Bucket:   "photos",
				Endpoint: "s3.example",
			})
			assert.NoError(t, err)
			entries[i] = entry
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.created.Load())
	for _, entry := range entries {
		assert.Same(t, entries[0], entry)
	}
	assert.Equal(t, []string{"photos"}, f.registry.Buckets())
}

func TestReconfigure_ReplacesEntry(t *testing.T) {
	f := newFixture()
	old := f.register(t, "photos", "s3.one.example", "")

	updated, err := f.registry.Reconfigure(context.Background(), storage.ClientConfig{
		Bucket:          "photos",
		Endpoint:        "s3.two.example",
		EncryptionKeyID: "key-2",
	})
	require.NoError(t, err)
	assert.NotSame(t, old, updated)

	current, ok := f.registry.Lookup("photos")
	require.True(t, ok)
	assert.Same(t, updated, current)
	assert.Equal(t, "s3.two.example", current.Endpoint)
	assert.EqualValues(t, 2, f.created.Load())
}

func TestBuckets_Sorted(t *testing.T) {
	f := newFixture()
	f.register(t, "zeta", "s3.example", "")
	f.register(t, "alpha", "s3.example", "")
	f.register(t, "mid", "s3.example", "")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, f.registry.Buckets())
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name     string
		kmsKeyID string
		encrypt  bool
		wantSSE  bool
	}{
		{name: "plain", kmsKeyID: "", encrypt: false, wantSSE: false},
		{name: "encrypt without registered key", kmsKeyID: "", encrypt: true, wantSSE: false},
		{name: "registered key but not requested", kmsKeyID: "kms-1", encrypt: false, wantSSE: false},
		{name: "encrypted", kmsKeyID: "kms-1", encrypt: true, wantSSE: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.register(t, "photos", "s3.example:9000", tt.kmsKeyID)

			var got *s3.PutObjectInput
			f.objects.On("PutObject", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { got = args.Get(1).(*s3.PutObjectInput) }).
				Return(&s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil).Once()

			url, err := f.registry.Upload(context.Background(), "photos", "cats/a.jpg", encode("jpeg bytes"), tt.encrypt)
			require.NoError(t, err)
			assert.Equal(t, "http://s3.example:9000/photos/cats/a.jpg", url)

			require.NotNil(t, got)
			assert.Equal(t, "photos", aws.ToString(got.Bucket))
			assert.Equal(t, "cats/a.jpg", aws.ToString(got.Key))
			assert.EqualValues(t, len("jpeg bytes"), aws.ToInt64(got.ContentLength))

			body, err := io.ReadAll(got.Body)
			require.NoError(t, err)
			assert.Equal(t, "jpeg bytes", string(body))

			if tt.wantSSE {
				assert.Equal(t, types.ServerSideEncryptionAwsKms, got.ServerSideEncryption)
				assert.Equal(t, "kms-1", aws.ToString(got.SSEKMSKeyId))
				assert.Equal(t, storage.ImageContentType, aws.ToString(got.ContentType))
				assert.Equal(t, storage.EncodedContentEncoding, aws.ToString(got.ContentEncoding))
			} else {
				assert.Empty(t, got.ServerSideEncryption)
				assert.Nil(t, got.SSEKMSKeyId)
				assert.Nil(t, got.ContentType)
				assert.Nil(t, got.ContentEncoding)
			}
			f.objects.AssertExpectations(t)
		})
	}
}

func TestUpload_InvalidBase64(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")

	url, err := f.registry.Upload(context.Background(), "photos", "a.jpg", "not-valid-base64!!", false)
	assert.ErrorIs(t, err, storage.ErrEncoding)
	assert.Empty(t, url)
	f.objects.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestUpload_UnregisteredBucket(t *testing.T) {
	f := newFixture()

	url, err := f.registry.Upload(context.Background(), "unknown", "a.jpg", encode("x"), true)
	assert.NoError(t, err)
	assert.Empty(t, url)
	f.objects.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestUpload_StoreFailure(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")

	denied := errors.New("AccessDenied")
	f.objects.On("PutObject", mock.Anything, mock.Anything).Return(nil, denied).Once()

	url, err := f.registry.Upload(context.Background(), "photos", "a.jpg", encode("x"), false)
	assert.Empty(t, url)
	assert.ErrorIs(t, err, denied)

	var opErr *storage.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "put", opErr.Op)
	assert.Equal(t, "photos", opErr.Bucket)
	assert.Equal(t, "a.jpg", opErr.Key)
	f.objects.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestUpload_NoConfirmation(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")
	f.objects.On("PutObject", mock.Anything, mock.Anything).Return(nil, nil).Once()

	url, err := f.registry.Upload(context.Background(), "photos", "a.jpg", encode("x"), false)
	assert.NoError(t, err)
	assert.Empty(t, url)
}

func TestStore_ReportsEntryUsed(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "kms-1")
	f.objects.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil).Twice()

	stored, err := f.registry.Store(context.Background(), "photos", "a.jpg", []byte("abc"), true)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "http://s3.example/photos/a.jpg", stored.URL)
	assert.Equal(t, 3, stored.Size)
	assert.True(t, stored.Encrypted)
	assert.Equal(t, "kms-1", stored.Entry.EncryptionKeyID)

	_, err = f.registry.Reconfigure(context.Background(), storage.ClientConfig{Bucket: "photos", Endpoint: "s3.example"})
	require.NoError(t, err)

	stored, err = f.registry.Store(context.Background(), "photos", "a.jpg", []byte("abc"), true)
	require.NoError(t, err)
	assert.False(t, stored.Encrypted)
	assert.Empty(t, stored.Entry.EncryptionKeyID)

	stored, err = f.registry.Store(context.Background(), "unknown", "a.jpg", []byte("abc"), true)
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestDelete_SingleBatchRequest(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")

	f.objects.On("DeleteObjects", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectsInput) bool {
		if aws.ToString(in.Bucket) != "photos" || in.Delete == nil || len(in.Delete.Objects) != 2 {
			return false
		}
		return aws.ToString(in.Delete.Objects[0].Key) == "k1" && aws.ToString(in.Delete.Objects[1].Key) == "k2"
	})).Return(&s3.DeleteObjectsOutput{
		Deleted: []types.DeletedObject{{Key: aws.String("k1")}},
		Errors:  []types.Error{{Key: aws.String("k2"), Code: aws.String("AccessDenied"), Message: aws.String("denied")}},
	}, nil).Once()

	res, err := f.registry.Delete(context.Background(), "photos", "k1", "k2")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []storage.DeletedObject{{Key: "k1"}}, res.Deleted)
	assert.Equal(t, []storage.DeleteError{{Key: "k2", Code: "AccessDenied", Message: "denied"}}, res.Errors)
	f.objects.AssertNumberOfCalls(t, "DeleteObjects", 1)
	f.objects.AssertExpectations(t)
}

func TestDelete_NoKeys(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")

	res, err := f.registry.Delete(context.Background(), "photos")
	assert.ErrorIs(t, err, storage.ErrNoKeys)
	assert.Nil(t, res)
	f.objects.AssertNotCalled(t, "DeleteObjects", mock.Anything, mock.Anything)
}

func TestDelete_UnregisteredBucket(t *testing.T) {
	f := newFixture()

	res, err := f.registry.Delete(context.Background(), "unknown", "k1")
	assert.NoError(t, err)
	assert.Nil(t, res)
	f.objects.AssertNotCalled(t, "DeleteObjects", mock.Anything, mock.Anything)
}

func TestDelete_StoreFailure(t *testing.T) {
	f := newFixture()
	f.register(t, "photos", "s3.example", "")

	throttled := errors.New("SlowDown")
	f.objects.On("DeleteObjects", mock.Anything, mock.Anything).Return(nil, throttled).Once()

	res, err := f.registry.Delete(context.Background(), "photos", "k1", "k2")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, throttled)

	var opErr *storage.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "delete", opErr.Op)
	f.objects.AssertNumberOfCalls(t, "DeleteObjects", 1)
}
