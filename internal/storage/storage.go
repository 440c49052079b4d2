// Package storage keeps uploaded images in a gocloud.dev bucket and hands
// out the public URL each one is served from.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

type Folder string

const (
	FolderProducts       Folder = "products"
	FolderAdvertisements Folder = "advertisements"
	FolderProfileImages  Folder = "profileImages"
	FolderReturns        Folder = "returns"
)

var (
	ErrUnsupportedType = errors.New("only jpg, jpeg, png and webp images are allowed")
	ErrEmpty           = errors.New("image is empty")
	ErrNotFound        = errors.New("image not found")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Image is a stored upload. PublicID is the bucket key.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type BucketStore struct {
	bucket  *blob.Bucket
	baseURL string
}

// Open connects to the bucket named by a gocloud URL such as
// file:///var/uploads, mem:// or gs://bucket.
func Open(ctx context.Context, bucketURL, baseURL string) (*BucketStore, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open bucket %s", bucketURL)
	}
	return NewBucketStore(b, baseURL), nil
}

func NewBucketStore(b *blob.Bucket, baseURL string) *BucketStore {
	return &BucketStore{bucket: b, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BucketStore) Upload(ctx context.Context, folder Folder, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mt := mimetype.Detect(data)
	ext, ok := extensions[mt.String()]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := string(folder) + "/image-" + uuid.NewString() + ext
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: mt.String()}); err != nil {
		return nil, errors.Wrapf(err, "write %s", key)
	}
	return &Image{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

// Delete removes the image. A missing key is not an error.
func (s *BucketStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	err := s.bucket.Delete(ctx, publicID)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return errors.Wrapf(err, "delete %s", publicID)
}

// Read opens a stored image for serving.
func (s *BucketStore) Read(ctx context.Context, publicID string) (io.ReadCloser, string, error) {
	r, err := s.bucket.NewReader(ctx, publicID, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %s", publicID)
	}
	return r, r.ContentType(), nil
}

func (s *BucketStore) Close() error {
	return s.bucket.Close()
}
