package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger logger.Logger
}

func NewCloudinaryStore(cloudinaryURL, folder string, logger logger.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{
		cld:    cld,
		folder: folder,
		logger: logger,
	}, nil
}

func (s *CloudinaryStore) Store(ctx context.Context, file io.Reader, kind Kind, owner string) (*StoredMedia, error) {
	l := LimitsFor(kind)
	params := uploader.UploadParams{
		Folder:         path.Join(s.folder, l.Folder),
		PublicID:       NewPublicID(owner),
		Transformation: l.Transformation,
		ResourceType:   l.ResourceType,
	}

	res, err := s.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	s.logger.DebugContext(ctx, "Media uploaded", map[string]interface{}{
		"public_id":     res.PublicID,
		"kind":          kind,
		"resource_type": res.ResourceType,
		"bytes":         res.Bytes,
	})
	return &StoredMedia{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		ResourceType: res.ResourceType,
		Bytes:        int64(res.Bytes),
		Format:       res.Format,
	}, nil
}

var errMediaNotFound = errors.New("media not found")

// Delete tries the image resource type first and falls back to video, since
// post uploads are stored with automatic type detection.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	for _, resourceType := range []string{"image", "video"} {
		res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
			PublicID:     publicID,
			ResourceType: resourceType,
		})
		if err != nil {
			return fmt.Errorf("cloudinary destroy: %w", err)
		}
		if res.Error.Message != "" {
			return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
		}
		if res.Result == "ok" {
			return nil
		}
	}
	return errMediaNotFound
}

// IsNotFound reports whether a Delete failed because nothing matched.
func IsNotFound(err error) bool {
	return errors.Is(err, errMediaNotFound)
}
