package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/jsonload/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client records expectations for calls whose responses are scripted.
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

// fakeClient serves ranged reads from memory the way S3 does.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
}

func (f *fakeClient) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()

	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	start, end := int64(0), int64(len(data)-1)
	if params.Range != nil {
		if _, err := fmt.Sscanf(aws.ToString(params.Range), "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		end = min(end, int64(len(data)-1))
	}
	body := data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, len(data))),
	}, nil
}

func (f *fakeClient) ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}

func TestStore_Open(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix")

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/foo"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(context.Background(), "foo")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/bar"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(100),
		}, nil).Once()

		blob, err := store.Open(context.Background(), "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(100), blob.Size())
	})

	mockClient.AssertExpectations(t)
}

func TestStore_List_Pagination(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix/")

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil && *input.Prefix == "prefix/"
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("prefix/twitter.json")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page2"),
	}, nil).Once()

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return aws.ToString(input.ContinuationToken) == "page2"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("prefix/crossref/part-0.jsonl.gz")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"crossref/part-0.jsonl.gz", "twitter.json"}, keys)
	mockClient.AssertExpectations(t)
}

func TestStore_ReadAtAndRange(t *testing.T) {
	payload := []byte(`{"id":1,"text":"range reads"}`)
	client := &fakeClient{objects: map[string][]byte{"data/doc.json": payload}}
	store := NewStore(client, "bucket", "data")
	ctx := context.Background()

	blob, err := store.Open(ctx, "doc.json")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(payload)), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, `"id"`, string(buf))

	// Short read at the tail reports io.EOF.
	tail := make([]byte, 10)
	n, err = blob.ReadAt(ctx, tail, int64(len(payload)-3))
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)

	r, err := blobstore.NewReader(ctx, blob)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, all)

	_, err = blob.ReadRange(ctx, int64(len(payload)), 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStore_Download(t *testing.T) {
	payload := []byte(strings.Repeat(`{"k":"v"}`+"\n", 1000))
	client := &fakeClient{objects: map[string][]byte{"datasets/big.jsonl": payload}}
	store := NewStoreWithConfig(client, "bucket", "datasets", DownloadConfig{
		PartSize:    manager.MinUploadPartSize,
		Concurrency: 2,
	})

	buf := manager.NewWriteAtBuffer(nil)
	n, err := store.Download(context.Background(), "big.jsonl", buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	var _ blobstore.Downloader = store

	_, err = store.Download(context.Background(), "missing.jsonl", manager.NewWriteAtBuffer(nil))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket, WithPrefix(os.Getenv("S3_PREFIX")))
	require.NoError(t, err)

	_, err = store.List(ctx, "")
	require.NoError(t, err)

	_, err = store.Open(ctx, "jsonload-nonexistent-blob")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
