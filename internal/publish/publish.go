package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object name, e.g. "informes/2024-03".
	Prefix string
}

// Enabled reports whether uploads are configured.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Uploader copies emitted reports to an object store.
type Uploader struct {
	client *minio.Client
	cfg    Config
	log    *logger.Logger
}

func NewUploader(cfg Config, appLogger *logger.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Uploader{client: client, cfg: cfg, log: appLogger}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Publish uploads the file at localPath and returns its public URL.
func (u *Uploader) Publish(ctx context.Context, localPath string) (string, error) {
	const component = "Publisher"

	objectName := ObjectName(u.cfg.Prefix, localPath)
	info, err := u.client.FPutObject(ctx, u.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	url := PublicURL(u.cfg, objectName)
	u.log.Info(component, "Report published: object=%s size=%d url=%s", objectName, info.Size, url)
	return url, nil
}

// ObjectName joins the prefix and the base name of localPath with slashes.
func ObjectName(prefix, localPath string) string {
	base := filepath.Base(localPath)
	prefix = strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// PublicURL returns a public URL for the object (if bucket policy allows)
func PublicURL(cfg Config, objectName string) string {
	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, cfg.Endpoint, cfg.Bucket, objectName)
}
