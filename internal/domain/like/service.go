package like

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles likes. A nil redis client disables the count cache.
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	cacheTTL    time.Duration
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
}

// NewService creates a new like service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg config.LikesConfig, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cfg.CountCacheTTL,
		metrics:     m,
		log:         log,
	}
}

func countKey(contentTypeID, objectID uint) string {
	return fmt.Sprintf("likes:count:%d:%d", contentTypeID, objectID)
}

// resolve checks that the content type is registered and the object exists
func (s *Service) resolve(ctx context.Context, contentTypeID, objectID uint) (ContentType, error) {
	ct, ok := LookupContentType(contentTypeID)
	if !ok {
		return ContentType{}, apperrors.New(apperrors.CodeNotFound, "content type not found")
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(ct.model).Where("id = ?", objectID).Count(&n).Error; err != nil {
		return ContentType{}, fmt.Errorf("failed to check liked object: %w", err)
	}
	if n == 0 {
		return ContentType{}, apperrors.New(apperrors.CodeNotFound, "object not found")
	}
	return ct, nil
}

// Toggle likes the object for sender, or removes an existing like. liked
// reports the state after the call; like is nil after an unlike.
func (s *Service) Toggle(ctx context.Context, senderID, contentTypeID, objectID uint) (*Like, bool, error) {
	if _, err := s.resolve(ctx, contentTypeID, objectID); err != nil {
		return nil, false, err
	}

	var (
		result *Like
		liked  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("sender_id = ? AND receiver_type = ? AND receiver_object_id = ?", senderID, contentTypeID, objectID).
			Delete(&Like{})
		if deleted.Error != nil {
			return fmt.Errorf("failed to remove like: %w", deleted.Error)
		}
		if deleted.RowsAffected > 0 {
			return nil
		}

		like := &Like{SenderID: senderID, ReceiverType: contentTypeID, ReceiverObjectID: objectID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
			return fmt.Errorf("failed to create like: %w", err)
		}
		// a concurrent toggle may have inserted first
		if err := tx.Where("sender_id = ? AND receiver_type = ? AND receiver_object_id = ?", senderID, contentTypeID, objectID).
			First(like).Error; err != nil {
			return fmt.Errorf("failed to load like: %w", err)
		}
		result = like
		liked = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.invalidate(ctx, contentTypeID, objectID)
	s.metrics.IncLikeToggle(liked)
	s.log.WithFields(logrus.Fields{
		"user_id":      senderID,
		"content_type": contentTypeID,
		"object_id":    objectID,
		"liked":        liked,
	}).Debug("like toggled")
	return result, liked, nil
}

func (s *Service) invalidate(ctx context.Context, contentTypeID, objectID uint) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, countKey(contentTypeID, objectID)).Err(); err != nil {
		s.log.WithError(err).Warn("failed to invalidate like count")
	}
}

// Count returns how many users like the object. Counts are cached in redis;
// cache failures fall back to the database.
func (s *Service) Count(ctx context.Context, contentTypeID, objectID uint) (int64, error) {
	key := countKey(contentTypeID, objectID)
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, key).Result()
		switch {
		case err == nil:
			if n, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil {
				return n, nil
			}
		case !errors.Is(err, redis.Nil):
			s.log.WithError(err).Warn("like count cache unavailable")
		}
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&Like{}).
		Where("receiver_type = ? AND receiver_object_id = ?", contentTypeID, objectID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}

	if s.redisClient != nil {
		if err := s.redisClient.Set(ctx, key, n, s.cacheTTL).Err(); err != nil {
			s.log.WithError(err).Warn("failed to cache like count")
		}
	}
	return n, nil
}

// Liked reports whether sender likes the object
func (s *Service) Liked(ctx context.Context, senderID, contentTypeID, objectID uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Like{}).
		Where("sender_id = ? AND receiver_type = ? AND receiver_object_id = ?", senderID, contentTypeID, objectID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return n > 0, nil
}

// WhoLikes lists the likes an object received, newest first
func (s *Service) WhoLikes(ctx context.Context, contentTypeID, objectID uint) ([]Like, error) {
	var likes []Like
	if err := s.db.WithContext(ctx).
		Where("receiver_type = ? AND receiver_object_id = ?", contentTypeID, objectID).
		Order("timestamp DESC, id DESC").
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	return likes, nil
}

// LikesBy lists what sender likes, restricted to the named content types.
// Unknown names are skipped; no names means every content type.
func (s *Service) LikesBy(ctx context.Context, senderID uint, contentTypeNames ...string) ([]Like, error) {
	query := s.db.WithContext(ctx).Where("sender_id = ?", senderID)
	if len(contentTypeNames) > 0 {
		var ids []uint
		for _, name := range contentTypeNames {
			if ct, ok := LookupContentTypeName(name); ok {
				ids = append(ids, ct.ID)
			}
		}
		if len(ids) == 0 {
			return []Like{}, nil
		}
		query = query.Where("receiver_type IN ?", ids)
	}

	var likes []Like
	if err := query.Order("timestamp DESC, id DESC").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	return likes, nil
}

// WidgetContext builds the like button state for a viewer. A zero viewerID
// is an anonymous visitor who cannot like.
func (s *Service) WidgetContext(ctx context.Context, viewerID, contentTypeID, objectID uint) (*Widget, error) {
	if _, err := s.resolve(ctx, contentTypeID, objectID); err != nil {
		return nil, err
	}
	count, err := s.Count(ctx, contentTypeID, objectID)
	if err != nil {
		return nil, err
	}

	w := &Widget{
		CanLike:    viewerID != 0,
		LikeCount:  count,
		CountsText: "Likes",
		LikeText:   "Like",
		LikeClass:  "no_like",
	}
	if count == 1 {
		w.CountsText = "Like"
	}
	if !w.CanLike {
		return w, nil
	}

	liked, err := s.Liked(ctx, viewerID, contentTypeID, objectID)
	if err != nil {
		return nil, err
	}
	w.Liked = liked
	w.LikeURL = fmt.Sprintf("/api/v1/likes/%d/%d/toggle", contentTypeID, objectID)
	if liked {
		w.LikeText, w.LikeClass = "Unlike", "unlike"
	} else {
		w.LikeClass = "like"
	}
	return w, nil
}
