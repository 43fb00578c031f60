package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultExtension = "jpg"
	sniffLen         = 3072
)

// An Uploader stores a binary asset under key and returns a URL that serves it.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Extension returns the lower case extension of filename without the dot, "jpg" if it has none.
func Extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// sniff returns contentType if it is set, otherwise it detects the type from the first bytes of r. The returned
// reader yields the complete content.
func sniff(contentType string, r io.Reader) (string, io.Reader, error) {
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType, r, nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// DataURL embeds data in a data: URL.
func DataURL(contentType string, data []byte) string {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DataURLUploader does not store anything; the returned URL carries the content itself. It serves when no
// object storage is configured.
type DataURLUploader struct{}

func (DataURLUploader) Upload(_ context.Context, _, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return DataURL(contentType, data), nil
}
