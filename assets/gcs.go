package assets

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// GCSUploader writes objects to the Firebase storage bucket and returns token protected download URLs.
type GCSUploader struct {
	client   *storage.Client
	bucket   string
	newToken func() string
}

var _ Uploader = (*GCSUploader)(nil)

func NewGCSUploader(ctx context.Context, cfg config.RemoteConfig, opts ...option.ClientOption) (*GCSUploader, error) {
	if cfg.StorageBucket == "" {
		return nil, fmt.Errorf("no storage bucket configured")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSUploader{client: client, bucket: cfg.StorageBucket, newToken: uuid.NewString}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	contentType, r, err := sniff(contentType, r)
	if err != nil {
		return "", err
	}
	token := u.newToken()
	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	w.ChunkSize = 0
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %w", err)
	}
	globals.AppLogger.Debug("asset uploaded", "bucket", u.bucket, "key", key, "content_type", contentType)
	return DownloadURL(u.bucket, key, token), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// DownloadURL is the public Firebase storage URL of an object carrying a download token.
func DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), url.QueryEscape(token))
}
