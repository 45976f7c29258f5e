// Package storage stores user uploads in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
)

const maxFilenameLength = 100

// ErrBucketMissing is returned by Ping when the configured bucket does not exist
var ErrBucketMissing = errors.New("bucket does not exist")

// Object describes an object to store
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectStore is the object storage capability used by the server and workers
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, obj Object) error
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (*url.URL, error)
	Remove(ctx context.Context, bucket, key string) error
	Ping(ctx context.Context) error
}

// ObjectKey builds the key for a user's upload: users/<userID>/<ULID>-<filename>
func ObjectKey(userID, filename string) string {
	return fmt.Sprintf("users/%s/%s-%s", userID, ulid.Make().String(), SanitizeFilename(filename))
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		return "file"
	}
	if len(clean) > maxFilenameLength {
		clean = clean[len(clean)-maxFilenameLength:]
	}
	return clean
}

// DetectContentType returns declared unless it is empty or generic, in which
// case the type is sniffed from the first bytes of the content
func DetectContentType(header []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(header).String()
}
