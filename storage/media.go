// Package storage keeps uploaded audio files and cover art in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"musicshare/core/apperr"
)

// Kind selects the key prefix an object is stored under.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "img"
)

// ParseKind accepts the kind names used by the upload form.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "audio", "track":
		return KindAudio, nil
	case "img", "image", "cover":
		return KindImage, nil
	}
	return "", fmt.Errorf("%w: unknown media kind %q", apperr.ErrInvalidFormat, s)
}

const maxNameLen = 200

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName checks a media file name. Names never contain a path separator
// so a name can't escape its kind's prefix.
func ValidateName(name string) error {
	if len(name) > maxNameLen || !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid media name %q", apperr.ErrInvalidFormat, name)
	}
	return nil
}

// ObjectKey returns the bucket key of a media file.
func ObjectKey(kind Kind, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return string(kind) + "/" + name, nil
}

var audioTypes = map[string]string{
	".mp3": "audio/mpeg",
	".ogg": "audio/ogg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// Object is an open media object. Callers must close it.
type Object struct {
	io.ReadCloser
	ObjectInfo
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Stats summarises a listing.
func Stats(objects []ObjectInfo) BucketStats {
	var s BucketStats
	for _, o := range objects {
		s.TotalObjects++
		s.TotalSize += o.Size
		if o.LastModified.After(s.LastModified) {
			s.LastModified = o.LastModified
		}
	}
	return s
}

// ErrMediaDisabled is returned when no object store is configured.
var ErrMediaDisabled = errors.New("media storage is not configured")

// MediaStore stores media objects by key.
type MediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	// Get opens an object; a missing key yields apperr.ErrNotFound.
	Get(ctx context.Context, key string) (*Object, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Remove(ctx context.Context, key string) error
}
