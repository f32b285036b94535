// Package media stores user uploads on an external media host.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnavailable   = errors.New("media host unavailable")
	ErrNotConfigured = errors.New("media host not configured")
)

type Kind string

const (
	KindProduct Kind = "product"
	KindAvatar  Kind = "avatar"
	KindPost    Kind = "post"
)

// Limits are enforced at the HTTP boundary before a file reaches a store.
type Limits struct {
	MaxBytes       int64
	MaxFiles       int
	AllowedTypes   []string
	Folder         string
	Transformation string
	ResourceType   string
}

const mb = 1 << 20

var imageTypes = []string{"image/jpeg", "image/png", "image/webp"}

var limits = map[Kind]Limits{
	KindProduct: {
		MaxBytes:       5 * mb,
		MaxFiles:       10,
		AllowedTypes:   imageTypes,
		Folder:         "products",
		Transformation: "c_limit,w_1200,h_1200,q_auto,f_auto",
		ResourceType:   "image",
	},
	KindAvatar: {
		MaxBytes:       2 * mb,
		MaxFiles:       1,
		AllowedTypes:   imageTypes,
		Folder:         "avatars",
		Transformation: "c_fill,g_face,w_400,h_400,q_auto,f_auto",
		ResourceType:   "image",
	},
	KindPost: {
		MaxBytes: 10 * mb,
		MaxFiles: 10,
		AllowedTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4", "video/quicktime", "video/webm",
		},
		Folder:         "posts",
		Transformation: "q_auto",
		ResourceType:   "auto",
	},
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(s))
	_, ok := limits[k]
	return k, ok
}

func LimitsFor(kind Kind) Limits {
	return limits[kind]
}

// Allows reports whether a detected mime type is accepted for kind.
func (l Limits) Allows(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	for _, t := range l.AllowedTypes {
		if t == mime {
			return true
		}
	}
	return false
}

type StoredMedia struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
	Bytes        int64  `json:"bytes,omitempty"`
	Format       string `json:"format,omitempty"`
}

// NewPublicID names a new upload after its owner.
func NewPublicID(owner string) string {
	return owner + "_" + uuid.NewString()
}

// OwnedBy reports whether publicID was created by NewPublicID for owner. The
// folder part of the id is ignored.
func OwnedBy(publicID, owner string) bool {
	return owner != "" && strings.HasPrefix(path.Base(publicID), owner+"_")
}

// Store is the media host seam; handlers depend on it, not on Cloudinary.
// owner is the uploading user's id and prefixes the stored public id.
type Store interface {
	Store(ctx context.Context, file io.Reader, kind Kind, owner string) (*StoredMedia, error)
	Delete(ctx context.Context, publicID string) error
}

// unconfiguredStore is used when no media host credentials are present.
type unconfiguredStore struct{}

func NewUnconfiguredStore() Store {
	return unconfiguredStore{}
}

func (unconfiguredStore) Store(context.Context, io.Reader, Kind, string) (*StoredMedia, error) {
	return nil, ErrNotConfigured
}

func (unconfiguredStore) Delete(context.Context, string) error {
	return ErrNotConfigured
}
