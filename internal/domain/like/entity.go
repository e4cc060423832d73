package like

import (
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/product"
)

// ContentType names a kind of object that can receive likes
type ContentType struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	model interface{}
}

// Registered content types. IDs are stored in likes and must stay stable.
var (
	ContentProduct    = ContentType{ID: 1, Name: "product.product", model: &product.Product{}}
	ContentCategory   = ContentType{ID: 2, Name: "product.category", model: &product.Category{}}
	ContentCollection = ContentType{ID: 3, Name: "product.collection", model: &product.Collection{}}
)

var contentTypes = []ContentType{ContentProduct, ContentCategory, ContentCollection}

// ContentTypes lists every registered content type
func ContentTypes() []ContentType {
	out := make([]ContentType, len(contentTypes))
	copy(out, contentTypes)
	return out
}

// LookupContentType finds a content type by id
func LookupContentType(id uint) (ContentType, bool) {
	for _, ct := range contentTypes {
		if ct.ID == id {
			return ct, true
		}
	}
	return ContentType{}, false
}

// LookupContentTypeName finds a content type by its "app.model" name,
// ignoring case
func LookupContentTypeName(name string) (ContentType, bool) {
	for _, ct := range contentTypes {
		if strings.EqualFold(ct.Name, strings.TrimSpace(name)) {
			return ct, true
		}
	}
	return ContentType{}, false
}

// Like records that a user likes an object
type Like struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SenderID         uint      `gorm:"not null;uniqueIndex:idx_like_sender_receiver,priority:1" json:"sender_id"`
	ReceiverType     uint      `gorm:"not null;uniqueIndex:idx_like_sender_receiver,priority:2;index:idx_like_receiver,priority:1" json:"receiver_content_type"`
	ReceiverObjectID uint      `gorm:"not null;uniqueIndex:idx_like_sender_receiver,priority:3;index:idx_like_receiver,priority:2" json:"receiver_object_id"`
	Timestamp        time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName overrides the table name
func (Like) TableName() string {
	return "likes"
}

// Widget is what a like button needs to render for one viewer and object
type Widget struct {
	CanLike    bool   `json:"can_like"`
	LikeCount  int64  `json:"like_count"`
	CountsText string `json:"counts_text"`
	Liked      bool   `json:"liked"`
	LikeText   string `json:"like_text"`
	LikeClass  string `json:"like_class"`
	LikeURL    string `json:"like_url,omitempty"`
}
