package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

// S3Config locates the snapshot bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough is configured to connect.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// SnapshotStore writes every created or updated document to S3 under
// workflows/<id>/<updated_at>.json. Objects are never overwritten or
// deleted. A failed upload is logged; the document itself is already saved.
type SnapshotStore struct {
	Store
	client     *minio.Client
	bucketName string
	region     string

	bucketReady retryOnce
}

// retryOnce runs fn until it succeeds once. Failures are not remembered, so
// a transient error or a cancelled context does not disable later calls.
type retryOnce struct {
	mu   sync.Mutex
	done bool
}

func (o *retryOnce) Do(fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	o.done = true
	return nil
}

// NewSnapshotStore wraps inner with S3 snapshots.
func NewSnapshotStore(inner Store, cfg S3Config) (*SnapshotStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &SnapshotStore{Store: inner, client: client, bucketName: bucket, region: region}, nil
}

func (s *SnapshotStore) ensureBucket(ctx context.Context) error {
	return s.bucketReady.Do(func() error {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
}

func (s *SnapshotStore) Create(ctx context.Context, w Workflow) (Workflow, error) {
	created, err := s.Store.Create(ctx, w)
	if err != nil {
		return Workflow{}, err
	}
	s.snapshot(ctx, created)
	return created, nil
}

func (s *SnapshotStore) Update(ctx context.Context, id string, p Patch) (Workflow, error) {
	updated, err := s.Store.Update(ctx, id, p)
	if err != nil {
		return Workflow{}, err
	}
	s.snapshot(ctx, updated)
	return updated, nil
}

func (s *SnapshotStore) snapshot(ctx context.Context, w Workflow) {
	logger := ctxlog.FromContext(ctx)
	key, err := s.put(ctx, w)
	if err != nil {
		logger.Warn("Workflow snapshot upload failed.", "workflow_id", w.ID, "error", err)
		return
	}
	logger.Debug("Workflow snapshot stored.", "workflow_id", w.ID, "key", key)
}

func (s *SnapshotStore) put(ctx context.Context, w Workflow) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	content, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	key := snapshotKey(w.ID, w.UpdatedAt)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return key, err
}

// Snapshots lists the object keys stored for a workflow, oldest first.
func (s *SnapshotStore) Snapshots(ctx context.Context, workflowID string) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := snapshotPrefix(workflowID)
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key != "" {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot reads one stored version.
func (s *SnapshotStore) Snapshot(ctx context.Context, key string) (Workflow, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Workflow{}, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return Workflow{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return Workflow{}, fmt.Errorf("snapshot '%s': %w", key, ErrNotFound)
		}
		return Workflow{}, err
	}
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return Workflow{}, fmt.Errorf("decode snapshot '%s': %w", key, err)
	}
	return w, nil
}

func snapshotPrefix(workflowID string) string {
	return "workflows/" + strings.Trim(strings.TrimSpace(workflowID), "/") + "/"
}

// snapshotKey sorts lexically in time order.
func snapshotKey(workflowID string, at time.Time) string {
	return snapshotPrefix(workflowID) + at.UTC().Format("20060102T150405.000000000Z") + ".json"
}
