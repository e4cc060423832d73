// internal/domain/attribute/service.go
package attribute

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// Tables holding attribute bags and the join tables that reference attributes.
// They belong to the product package, which depends on this one.
var (
	bagTables       = []string{"products", "product_variants"}
	referenceTables = []string{"product_type_product_attributes", "product_type_variant_attributes"}
)

var rgbHex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// Service handles attribute schema business logic
type Service struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	validate *validator.Validate
}

// NewService creates a new attribute service
func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	v := validator.New()
	_ = v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		return rgbHex.MatchString(fl.Field().String())
	})
	return &Service{db: db, log: log, validate: v}
}

// AttributeRequest represents attribute create/update data
type AttributeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Slug string `json:"slug" binding:"max=100"`
}

// ValueRequest represents attribute value create/update data
type ValueRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Slug  string `json:"slug" binding:"max=100"`
	Color string `json:"color" validate:"omitempty,rgbhex"`
}

// ListAttributes returns every attribute with its values, ordered by slug
func (s *Service) ListAttributes(ctx context.Context) ([]Attribute, error) {
	var attrs []Attribute
	err := s.db.WithContext(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("slug ASC").
		Find(&attrs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve attributes: %w", err)
	}
	return attrs, nil
}

// GetAttributes loads the given attributes with values, ordered by slug.
// Unknown ids are silently skipped.
func (s *Service) GetAttributes(ctx context.Context, ids []uint) ([]Attribute, error) {
	if len(ids) == 0 {
		return []Attribute{}, nil
	}
	var attrs []Attribute
	err := s.db.WithContext(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id IN ?", ids).
		Order("slug ASC").
		Find(&attrs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve attributes: %w", err)
	}
	return attrs, nil
}

// GetAttribute returns one attribute with its values
func (s *Service) GetAttribute(ctx context.Context, id uint) (*Attribute, error) {
	var attr Attribute
	err := s.db.WithContext(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&attr, id).Error
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "attribute not found")
	}
	return &attr, nil
}

// CreateAttribute creates a new attribute
func (s *Service) CreateAttribute(ctx context.Context, req *AttributeRequest) (*Attribute, error) {
	attr := &Attribute{
		Name: strings.TrimSpace(req.Name),
		Slug: slugOr(req.Slug, req.Name),
	}
	if attr.Slug == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "attribute slug cannot be empty")
	}

	if err := s.ensureSlugFree(ctx, attr.Slug, 0); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(attr).Error; err != nil {
		return nil, fmt.Errorf("failed to create attribute: %w", err)
	}

	s.log.WithFields(logrus.Fields{"attribute_id": attr.ID, "slug": attr.Slug}).Info("attribute created")
	return attr, nil
}

// UpdateAttribute renames an attribute
func (s *Service) UpdateAttribute(ctx context.Context, id uint, req *AttributeRequest) (*Attribute, error) {
	attr, err := s.GetAttribute(ctx, id)
	if err != nil {
		return nil, err
	}

	attr.Name = strings.TrimSpace(req.Name)
	if newSlug := slugOr(req.Slug, ""); newSlug != "" && newSlug != attr.Slug {
		if err := s.ensureSlugFree(ctx, newSlug, attr.ID); err != nil {
			return nil, err
		}
		attr.Slug = newSlug
	}

	if err := s.db.WithContext(ctx).Model(attr).Updates(map[string]interface{}{
		"name": attr.Name,
		"slug": attr.Slug,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update attribute: %w", err)
	}
	return attr, nil
}

// DeleteAttribute removes an attribute that no product type references and
// purges its key from every attribute bag.
func (s *Service) DeleteAttribute(ctx context.Context, id uint) error {
	attr, err := s.GetAttribute(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range referenceTables {
			var refs int64
			if err := tx.Table(table).Where("attribute_id = ?", attr.ID).Count(&refs).Error; err != nil {
				return fmt.Errorf("failed to count attribute references: %w", err)
			}
			if refs > 0 {
				return apperrors.New(apperrors.CodeConflict, "attribute is still assigned to a product type").
					WithDetails(map[string]interface{}{"attribute": attr.Slug, "references": refs})
			}
		}

		key := attr.Key()
		if err := rewriteBags(tx, func(bag Bag) bool {
			if _, ok := bag[key]; !ok {
				return false
			}
			delete(bag, key)
			return true
		}); err != nil {
			return err
		}

		if err := tx.Where("attribute_id = ?", attr.ID).Delete(&AttributeValue{}).Error; err != nil {
			return fmt.Errorf("failed to delete attribute values: %w", err)
		}
		if err := tx.Delete(&Attribute{}, attr.ID).Error; err != nil {
			return fmt.Errorf("failed to delete attribute: %w", err)
		}

		s.log.WithField("attribute_id", attr.ID).Info("attribute deleted")
		return nil
	})
}

// AddValue creates a new choice for an attribute
func (s *Service) AddValue(ctx context.Context, attributeID uint, req *ValueRequest) (*AttributeValue, error) {
	if err := s.validateValue(req); err != nil {
		return nil, err
	}
	if _, err := s.GetAttribute(ctx, attributeID); err != nil {
		return nil, err
	}

	value := &AttributeValue{
		AttributeID: attributeID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        slugOr(req.Slug, req.Name),
		Color:       req.Color,
	}
	if err := s.ensureValueNameFree(ctx, attributeID, value.Name, 0); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(value).Error; err != nil {
		return nil, fmt.Errorf("failed to create attribute value: %w", err)
	}
	return value, nil
}

// UpdateValue updates a choice
func (s *Service) UpdateValue(ctx context.Context, valueID uint, req *ValueRequest) (*AttributeValue, error) {
	if err := s.validateValue(req); err != nil {
		return nil, err
	}

	var value AttributeValue
	if err := s.db.WithContext(ctx).First(&value, valueID).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "attribute value not found")
	}

	name := strings.TrimSpace(req.Name)
	if name != value.Name {
		if err := s.ensureValueNameFree(ctx, value.AttributeID, name, value.ID); err != nil {
			return nil, err
		}
	}
	value.Name = name
	value.Slug = slugOr(req.Slug, req.Name)
	value.Color = req.Color

	if err := s.db.WithContext(ctx).Save(&value).Error; err != nil {
		return nil, fmt.Errorf("failed to update attribute value: %w", err)
	}
	return &value, nil
}

// DeleteValue removes a choice and blanks every bag entry that selected it
func (s *Service) DeleteValue(ctx context.Context, valueID uint) error {
	var value AttributeValue
	if err := s.db.WithContext(ctx).First(&value, valueID).Error; err != nil {
		return apperrors.NotFoundOr(err, "attribute value not found")
	}

	attrKey := fmt.Sprintf("%d", value.AttributeID)
	valueKey := value.Key()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rewriteBags(tx, func(bag Bag) bool {
			if bag[attrKey] != valueKey {
				return false
			}
			bag[attrKey] = ""
			return true
		}); err != nil {
			return err
		}
		if err := tx.Delete(&AttributeValue{}, value.ID).Error; err != nil {
			return fmt.Errorf("failed to delete attribute value: %w", err)
		}
		return nil
	})
}

func (s *Service) validateValue(req *ValueRequest) error {
	if err := s.validate.Struct(req); err != nil {
		details := FieldErrors{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fmt.Sprintf("failed on %s", fe.Tag())
			}
		}
		return apperrors.New(apperrors.CodeValidation, "invalid attribute value").WithDetails(details)
	}
	return nil
}

func (s *Service) ensureSlugFree(ctx context.Context, candidate string, exceptID uint) error {
	var count int64
	query := s.db.WithContext(ctx).Model(&Attribute{}).Where("slug = ?", candidate)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check attribute slug: %w", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "attribute with slug %q already exists", candidate)
	}
	return nil
}

func (s *Service) ensureValueNameFree(ctx context.Context, attributeID uint, name string, exceptID uint) error {
	var count int64
	query := s.db.WithContext(ctx).Model(&AttributeValue{}).
		Where("attribute_id = ? AND name = ?", attributeID, name)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check attribute value name: %w", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "value %q already exists for this attribute", name)
	}
	return nil
}

type bagRow struct {
	ID         uint
	Attributes Bag
}

// rewriteBags applies mutate to every bag in bagTables and stores the bags
// it reports as changed.
func rewriteBags(tx *gorm.DB, mutate func(Bag) bool) error {
	for _, table := range bagTables {
		var rows []bagRow
		err := tx.Table(table).Select("id", "attributes").
			FindInBatches(&rows, 200, func(batch *gorm.DB, _ int) error {
				for _, row := range rows {
					if row.Attributes == nil || !mutate(row.Attributes) {
						continue
					}
					if err := tx.Table(table).Where("id = ?", row.ID).
						Update("attributes", row.Attributes).Error; err != nil {
						return err
					}
				}
				return nil
			}).Error
		if err != nil {
			return fmt.Errorf("failed to rewrite %s attribute bags: %w", table, err)
		}
	}
	return nil
}

func slugOr(explicit, fallback string) string {
	if s := slug.Make(strings.TrimSpace(explicit)); s != "" {
		return s
	}
	return slug.Make(strings.TrimSpace(fallback))
}
