package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/D4ZA1/Cryopay/interfaces"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3LedgerStore implements LedgerStore on Amazon S3 or compatible services.
// Each entry is one object; the zero-padded sequence number in the key keeps
// listing order equal to insertion order.
type S3LedgerStore struct {
	client      s3iface.S3API
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string

	// mu serializes appends from this process; cross-process races can still fork the chain.
	mu sync.Mutex
}

// NewS3LedgerStore creates an S3 ledger store. Without accessKey and
// secretKey the default AWS credential chain is used.
func NewS3LedgerStore(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3LedgerStore, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if accessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", accessKey, bucketName, prefix, region)
	}
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		log.Warn("No S3 credentials in URI - falling back to the default AWS credential chain")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	store := NewS3LedgerStoreWithClient(s3.New(sess), bucketName, prefix, log)
	store.locationURI = uri
	return store, nil
}

// NewS3LedgerStoreWithClient wraps an existing S3 client.
func NewS3LedgerStoreWithClient(client s3iface.S3API, bucketName, prefix string, log *slog.Logger) *S3LedgerStore {
	return &S3LedgerStore{
		client:      client,
		bucketName:  bucketName,
		prefix:      strings.Trim(prefix, "/"),
		log:         log,
		locationURI: fmt.Sprintf("s3://%s/%s", bucketName, prefix),
	}
}

func (b *S3LedgerStore) blocksPrefix() string {
	if b.prefix == "" {
		return "blocks/"
	}
	return path.Join(b.prefix, "blocks") + "/"
}

func (b *S3LedgerStore) objectKey(seq uint64, hash interfaces.Hash) string {
	return fmt.Sprintf("%s%020d-%s.json", b.blocksPrefix(), seq, hash)
}

type blockKey struct {
	key  string
	seq  uint64
	hash interfaces.Hash
}

func (b *S3LedgerStore) parseKey(key string) (blockKey, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(key, b.blocksPrefix()), ".json")
	seqStr, hashStr, ok := strings.Cut(name, "-")
	if !ok {
		return blockKey{}, false
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return blockKey{}, false
	}
	hash, err := interfaces.NewHashFromHex(hashStr)
	if err != nil {
		return blockKey{}, false
	}
	return blockKey{key: key, seq: seq, hash: hash}, true
}

// listKeys returns block keys in lexical, i.e. insertion, order.
func (b *S3LedgerStore) listKeys(ctx context.Context) ([]blockKey, error) {
	var keys []blockKey
	err := b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucketName),
		Prefix: aws.String(b.blocksPrefix()),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if k, ok := b.parseKey(aws.StringValue(obj.Key)); ok {
				keys = append(keys, k)
			} else {
				b.log.Warn("Ignoring unexpected object in ledger prefix", slog.String("key", aws.StringValue(obj.Key)))
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list ledger objects: %v", interfaces.ErrStoreUnavailable, err)
	}
	return keys, nil
}

func (b *S3LedgerStore) fetch(ctx context.Context, key string) (interfaces.LedgerEntry, error) {
	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
		}
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to read object body: %w", err)
	}

	var entry interfaces.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return interfaces.LedgerEntry{}, fmt.Errorf("failed to decode ledger object %s: %w", key, err)
	}
	return entry, nil
}

func (b *S3LedgerStore) Insert(ctx context.Context, entry interfaces.LedgerEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	keys, err := b.listKeys(ctx)
	if err != nil {
		return err
	}

	var next uint64 = 1
	for _, k := range keys {
		if k.hash == entry.Hash {
			return interfaces.ErrDuplicateEntry
		}
		if k.seq >= next {
			next = k.seq + 1
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	key := b.objectKey(next, entry.Hash)
	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored ledger entry in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (b *S3LedgerStore) LatestHash(ctx context.Context) (*interfaces.Hash, error) {
	keys, err := b.listKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return interfaces.HashPtr(keys[len(keys)-1].hash), nil
}

func (b *S3LedgerStore) Entries(ctx context.Context) ([]interfaces.LedgerEntry, error) {
	keys, err := b.listKeys(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]interfaces.LedgerEntry, 0, len(keys))
	for _, k := range keys {
		e, err := b.fetch(ctx, k.key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *S3LedgerStore) Entry(ctx context.Context, hash interfaces.Hash) (interfaces.LedgerEntry, error) {
	keys, err := b.listKeys(ctx)
	if err != nil {
		return interfaces.LedgerEntry{}, err
	}
	for _, k := range keys {
		if k.hash == hash {
			return b.fetch(ctx, k.key)
		}
	}
	return interfaces.LedgerEntry{}, interfaces.ErrEntryNotFound
}

// Available checks if the bucket is accessible.
func (b *S3LedgerStore) Available(ctx context.Context) bool {
	start := time.Now()
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 store unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}
	return true
}

func (b *S3LedgerStore) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this store, with the secret redacted.
func (b *S3LedgerStore) LocationURI() string {
	return b.locationURI
}
