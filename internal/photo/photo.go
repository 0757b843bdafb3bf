package photo

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"alumni/internal/cloudinary"
	"alumni/internal/token"
)

// Uploader stores image bytes on the CDN.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string, opts cloudinary.UploadOptions) (*cloudinary.UploadResult, error)
}

// Normalize decodes an uploaded photo, rotates it according to its EXIF
// orientation and re-encodes it in the format implied by filename.
func Normalize(data []byte, filename string) ([]byte, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Store uploads member profile photos.
type Store struct {
	cdn  Uploader
	root string
}

// NewStore creates a profile photo store rooted at the given CDN folder.
func NewStore(cdn Uploader, root string) *Store {
	return &Store{cdn: cdn, root: root}
}

// StoreProfilePhoto normalizes and uploads a photo under {root}/Profile/{altUserID}
// and returns its public URL.
func (s *Store) StoreProfilePhoto(ctx context.Context, altUserID string, data []byte, filename string) (string, error) {
	img, err := Normalize(data, filename)
	if err != nil {
		return "", err
	}
	name, err := token.Hex(8)
	if err != nil {
		return "", err
	}
	res, err := s.cdn.Upload(ctx, img, filename, cloudinary.UploadOptions{
		Folder:   s.root + "/Profile/" + altUserID,
		PublicID: name,
	})
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}
