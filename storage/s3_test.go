package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and implements the calls S3LedgerStore makes.
type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	objects map[string][]byte
	down    bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return awserr.New("RequestError", "connection refused", nil)
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.StringValue(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// two pages to exercise pagination
	mid := len(keys) / 2
	pages := [][]string{keys[:mid], keys[mid:]}
	for i, page := range pages {
		out := &s3.ListObjectsV2Output{}
		for _, k := range page {
			out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
		}
		if !fn(out, i == len(pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, awserr.New("NotFound", "bucket not found", nil)
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3LedgerStore(t *testing.T) {
	testLedgerStore(t, NewS3LedgerStoreWithClient(newFakeS3(), "ledger-bucket", "cryopay", testLogger()))
}

func TestS3LedgerStoreObjectKeys(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3LedgerStoreWithClient(client, "ledger-bucket", "/cryopay/", testLogger())

	entries := makeChain(t, 2)
	for _, e := range entries {
		require.NoError(t, store.Insert(ctx, e))
	}
	// stray objects are ignored
	client.objects["cryopay/blocks/README"] = []byte("hello")

	require.Contains(t, client.objects, "cryopay/blocks/00000000000000000001-"+entries[0].Hash.String()+".json")
	require.Contains(t, client.objects, "cryopay/blocks/00000000000000000002-"+entries[1].Hash.String()+".json")

	stored, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Equal(t, hashes(entries), hashes(stored))
	require.Equal(t, "s3-ledger-bucket", store.Name())
}

func TestS3LedgerStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	client.down = true
	store := NewS3LedgerStoreWithClient(client, "ledger-bucket", "", testLogger())

	require.False(t, store.Available(ctx))

	_, err := store.LatestHash(ctx)
	require.True(t, errors.Is(err, interfaces.ErrStoreUnavailable))

	err = store.Insert(ctx, makeChain(t, 1)[0])
	require.True(t, errors.Is(err, interfaces.ErrStoreUnavailable))
}
