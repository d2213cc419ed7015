package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/desertthunder/mediactl/internal/shared"
)

// File is a chosen upload source. Open may be called more than once, once per
// transfer attempt.
type File struct {
	Name string
	// Size in bytes, negative when unknown.
	Size int64
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// OpenSource resolves location to a [File].
//
// Plain paths are read from disk. URLs are opened as gocloud blobs: "file:///dir/clip.mp4"
// or "s3://bucket/key.mp4?region=us-east-1".
func OpenSource(ctx context.Context, location string) (*File, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: file", shared.ErrMissingArgument)
	}

	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return localFile(location)
	}
	return blobFile(ctx, u)
}

func localFile(p string) (*File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidInput, p)
	}

	return &File{
		Name: filepath.Base(p),
		Size: info.Size(),
		Open: func(context.Context) (io.ReadCloser, error) {
			return os.Open(p)
		},
	}, nil
}

// splitBlobURL separates a blob URL into the bucket URL and the object key.
func splitBlobURL(u *url.URL) (bucketURL, key string) {
	if u.Scheme == "file" {
		dir, name := path.Split(u.Path)
		bucket := url.URL{Scheme: "file", Path: strings.TrimSuffix(dir, "/"), RawQuery: u.RawQuery}
		if bucket.Path == "" {
			bucket.Path = "/"
		}
		return bucket.String(), name
	}

	bucket := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
	return bucket.String(), strings.TrimPrefix(u.Path, "/")
}

func blobFile(ctx context.Context, u *url.URL) (*File, error) {
	bucketURL, key := splitBlobURL(u)
	if key == "" {
		return nil, fmt.Errorf("%w: %s has no object key", shared.ErrInvalidInput, u.Redacted())
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}
	defer bucket.Close()

	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrInvalidInput, key, err)
	}

	return &File{
		Name: path.Base(key),
		Size: attrs.Size,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			b, err := blob.OpenBucket(ctx, bucketURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
			}
			r, err := b.NewReader(ctx, key, nil)
			if err != nil {
				b.Close()
				return nil, err
			}
			return &blobReader{Reader: r, bucket: b}, nil
		},
	}, nil
}

type blobReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r *blobReader) Close() error {
	return errors.Join(r.Reader.Close(), r.bucket.Close())
}
