// Package s3 implements blob.Store on MinIO or any S3-compatible service.
package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/and161185/vidgraph/internal/blob"
	"github.com/and161185/vidgraph/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// PublicURL prefixes object names in returned URLs; defaults to the endpoint.
	PublicURL string
}

type objectAPI interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// Store uploads into one bucket.
type Store struct {
	api    objectAPI
	bucket string
	base   string
	probe  func(localPath string) (float64, error)
}

var _ blob.Store = (*Store)(nil)

// New connects to the endpoint.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &Store{api: client, bucket: cfg.Bucket, base: strings.TrimRight(base, "/"), probe: Duration}, nil
}

func (s *Store) prefix() string { return s.base + "/" + s.bucket + "/" }

// Upload implements blob.Store.
func (s *Store) Upload(ctx context.Context, localPath string, kind blob.Kind) (blob.Object, error) {
	if strings.TrimSpace(localPath) == "" {
		return blob.Object{}, fmt.Errorf("upload path: %w", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return blob.Object{}, err
	}
	dir, contentType := "images", "image/jpeg"
	if kind == blob.Media {
		dir, contentType = "videos", "video/mp4"
	}
	object := path.Join(dir, id.String()+strings.ToLower(filepath.Ext(localPath)))

	var obj blob.Object
	if kind == blob.Media {
		if obj.Duration, err = s.probe(localPath); err != nil {
			return blob.Object{}, fmt.Errorf("probe %s: %w: %v", localPath, errs.ErrDependency, err)
		}
	}
	if _, err := s.api.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return blob.Object{}, fmt.Errorf("put %s: %w: %v", object, errs.ErrDependency, err)
	}
	obj.URL = s.prefix() + object
	return obj, nil
}

// Delete implements blob.Store. URLs outside the bucket are left alone.
func (s *Store) Delete(ctx context.Context, url string) (bool, error) {
	object, ok := strings.CutPrefix(url, s.prefix())
	if !ok || object == "" {
		return false, nil
	}
	if err := s.api.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove %s: %w: %v", object, errs.ErrDependency, err)
	}
	return true, nil
}

// Duration probes a media file with ffprobe and returns its length in seconds.
func Duration(localPath string) (float64, error) {
	out, err := ffmpeg.Probe(localPath)
	if err != nil {
		return 0, err
	}
	return parseProbe(out)
}

func parseProbe(out string) (float64, error) {
	var doc struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		return 0, err
	}
	if doc.Format.Duration == "" {
		return 0, fmt.Errorf("probe output has no duration")
	}
	return strconv.ParseFloat(doc.Format.Duration, 64)
}
