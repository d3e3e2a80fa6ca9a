package image

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentnest/service-rental/pkg/domain"
)

// AllowedContentTypes maps accepted upload types to their file extension.
var AllowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// IsAllowedContentType reports whether uploads of this MIME type are accepted.
func IsAllowedContentType(contentType string) bool {
	_, ok := AllowedContentTypes[strings.ToLower(contentType)]
	return ok
}

// PropertyImage is a photo attached to a property listing.
type PropertyImage struct {
	id          uuid.UUID
	propertyID  uuid.UUID
	url         string
	storageKey  string
	contentType string
	sizeBytes   int64
	isCover     bool
	position    int
	createdAt   time.Time
}

// NewPropertyImage creates an image record for a stored blob.
func NewPropertyImage(propertyID uuid.UUID, url, storageKey, contentType string, sizeBytes int64, position int) (*PropertyImage, error) {
	if propertyID == uuid.Nil {
		return nil, domain.NewValidationError("property ID is required")
	}
	if !IsAllowedContentType(contentType) {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported content type: %s", contentType))
	}
	if url == "" || storageKey == "" {
		return nil, domain.NewValidationError("image URL and storage key are required")
	}
	if sizeBytes <= 0 {
		return nil, domain.NewValidationError("image is empty")
	}

	return &PropertyImage{
		id:          uuid.New(),
		propertyID:  propertyID,
		url:         url,
		storageKey:  storageKey,
		contentType: strings.ToLower(contentType),
		sizeBytes:   sizeBytes,
		position:    position,
		createdAt:   time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a PropertyImage from persistence.
func Reconstruct(id, propertyID uuid.UUID, url, storageKey, contentType string, sizeBytes int64, isCover bool, position int, createdAt time.Time) *PropertyImage {
	return &PropertyImage{
		id:          id,
		propertyID:  propertyID,
		url:         url,
		storageKey:  storageKey,
		contentType: contentType,
		sizeBytes:   sizeBytes,
		isCover:     isCover,
		position:    position,
		createdAt:   createdAt,
	}
}

// Getters.
func (i *PropertyImage) ID() uuid.UUID         { return i.id }
func (i *PropertyImage) PropertyID() uuid.UUID { return i.propertyID }
func (i *PropertyImage) URL() string           { return i.url }
func (i *PropertyImage) StorageKey() string    { return i.storageKey }
func (i *PropertyImage) ContentType() string   { return i.contentType }
func (i *PropertyImage) SizeBytes() int64      { return i.sizeBytes }
func (i *PropertyImage) IsCover() bool         { return i.isCover }
func (i *PropertyImage) Position() int         { return i.position }
func (i *PropertyImage) CreatedAt() time.Time  { return i.createdAt }

// MarkCover flags the image as the listing's cover.
func (i *PropertyImage) MarkCover() { i.isCover = true }

// NextCover picks the image to promote after the cover is removed: the lowest
// position among the remaining images, ties broken by upload time.
func NextCover(remaining []*PropertyImage) *PropertyImage {
	if len(remaining) == 0 {
		return nil
	}
	sorted := make([]*PropertyImage, len(remaining))
	copy(sorted, remaining)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].position != sorted[b].position {
			return sorted[a].position < sorted[b].position
		}
		return sorted[a].createdAt.Before(sorted[b].createdAt)
	})
	return sorted[0]
}
