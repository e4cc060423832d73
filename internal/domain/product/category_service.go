// internal/domain/product/category_service.go
package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// CategoryService handles category business logic
type CategoryService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, log logrus.FieldLogger) *CategoryService {
	return &CategoryService{
		db:  db,
		log: log,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Slug        string `json:"slug" binding:"max=128"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

// CategoryUpdateRequest represents category update data
type CategoryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=128"`
	Slug        *string `json:"slug" binding:"omitempty,max=128"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryTree represents hierarchical category structure
type CategoryTree struct {
	Category
	Path     string         `json:"path"`
	Children []CategoryTree `json:"children,omitempty"`
}

// FullPath joins the slugs of the ancestors, root first, and the category
func (c *Category) FullPath(ancestors []Category) string {
	if c.ParentID == nil {
		return c.Slug
	}
	parts := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		parts = append(parts, a.Slug)
	}
	return strings.Join(append(parts, c.Slug), "/")
}

// URL is the canonical path of the category listing
func (c *Category) URL(ancestors []Category) string {
	return fmt.Sprintf("/categories/%d/%s", c.ID, c.FullPath(ancestors))
}

// GetCategories retrieves all categories ordered for display
func (s *CategoryService) GetCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	var categories []Category

	query := s.db.WithContext(ctx).Model(&Category{}).
		Order("sort_order ASC, name ASC")

	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}

	return categories, nil
}

// GetCategoryTree retrieves categories in hierarchical tree structure
func (s *CategoryService) GetCategoryTree(ctx context.Context, includeInactive bool) ([]CategoryTree, error) {
	categories, err := s.GetCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	children := make(map[uint][]Category)
	var roots []Category
	for _, cat := range categories {
		if cat.ParentID == nil {
			roots = append(roots, cat)
			continue
		}
		children[*cat.ParentID] = append(children[*cat.ParentID], cat)
	}

	var build func(cat Category, prefix string) CategoryTree
	build = func(cat Category, prefix string) CategoryTree {
		path := cat.Slug
		if prefix != "" {
			path = prefix + "/" + cat.Slug
		}
		node := CategoryTree{Category: cat, Path: path}
		for _, child := range children[cat.ID] {
			node.Children = append(node.Children, build(child, path))
		}
		return node
	}

	tree := make([]CategoryTree, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root, ""))
	}
	return tree, nil
}

// GetCategory retrieves a single category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
		}).
		Where("id = ?", id).
		First(&category).Error
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "category not found")
	}
	return &category, nil
}

// Ancestors returns the ancestors of a category, root first
func (s *CategoryService) Ancestors(ctx context.Context, category *Category) ([]Category, error) {
	var ancestors []Category
	seen := map[uint]bool{category.ID: true}
	parentID := category.ParentID

	for parentID != nil {
		if seen[*parentID] {
			return nil, fmt.Errorf("category %d has a cyclic ancestry", category.ID)
		}
		seen[*parentID] = true

		var parent Category
		if err := s.db.WithContext(ctx).First(&parent, *parentID).Error; err != nil {
			return nil, fmt.Errorf("failed to load category ancestor: %w", err)
		}
		ancestors = append([]Category{parent}, ancestors...)
		parentID = parent.ParentID
	}
	return ancestors, nil
}

// FullPath resolves the slug path of a category
func (s *CategoryService) FullPath(ctx context.Context, category *Category) (string, error) {
	ancestors, err := s.Ancestors(ctx, category)
	if err != nil {
		return "", err
	}
	return category.FullPath(ancestors), nil
}

// DescendantIDs returns the ids of the category subtree rooted at id
func (s *CategoryService) DescendantIDs(ctx context.Context, id uint, includeSelf bool) ([]uint, error) {
	var rows []struct {
		ID       uint
		ParentID *uint
	}
	if err := s.db.WithContext(ctx).Model(&Category{}).Select("id", "parent_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}

	children := make(map[uint][]uint)
	for _, row := range rows {
		if row.ParentID != nil {
			children[*row.ParentID] = append(children[*row.ParentID], row.ID)
		}
	}

	var ids []uint
	if includeSelf {
		ids = append(ids, id)
	}
	queue := append([]uint(nil), children[id]...)
	seen := map[uint]bool{id: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		ids = append(ids, next)
		queue = append(queue, children[next]...)
	}
	return ids, nil
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(ctx context.Context, req *CategoryCreateRequest) (*Category, error) {
	if req.ParentID != nil {
		if _, err := s.GetCategory(ctx, *req.ParentID); err != nil {
			return nil, apperrors.New(apperrors.CodeValidation, "parent category not found")
		}
	}

	slug := slugOr(req.Slug, req.Name)
	if slug == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "category slug cannot be empty")
	}
	if err := s.ensureSlugFree(ctx, slug, 0); err != nil {
		return nil, err
	}

	category := Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	// gorm skips zero values that have a default tag
	if !category.IsActive {
		if err := s.db.WithContext(ctx).Model(&category).Update("is_active", false).Error; err != nil {
			return nil, fmt.Errorf("failed to create category: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{"category_id": category.ID, "slug": category.Slug}).Info("category created")
	return &category, nil
}

// UpdateCategory updates an existing category
func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, req *CategoryUpdateRequest) (*Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, apperrors.New(apperrors.CodeValidation, "category cannot be its own parent")
		}
		parent, err := s.GetCategory(ctx, *req.ParentID)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeValidation, "parent category not found")
		}
		ancestors, err := s.Ancestors(ctx, parent)
		if err != nil {
			return nil, err
		}
		for _, a := range ancestors {
			if a.ID == id {
				return nil, apperrors.New(apperrors.CodeValidation, "circular reference detected")
			}
		}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		slug := slugOr(*req.Slug, category.Name)
		if slug != category.Slug {
			if err := s.ensureSlugFree(ctx, slug, id); err != nil {
				return nil, err
			}
			updates["slug"] = slug
		}
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(category).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update category: %w", err)
		}
	}

	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category without products or subcategories
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)

	var productCount int64
	if err := db.Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if productCount > 0 {
		return apperrors.New(apperrors.CodeConflict, "cannot delete category with existing products")
	}

	var childCount int64
	if err := db.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
		return fmt.Errorf("failed to count subcategories: %w", err)
	}
	if childCount > 0 {
		return apperrors.New(apperrors.CodeConflict, "cannot delete category with subcategories")
	}

	result := db.Where("id = ?", id).Delete(&Category{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string, exceptID uint) error {
	var count int64
	query := s.db.WithContext(ctx).Model(&Category{}).Where("slug = ?", slug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check category slug: %w", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.CodeConflict, "category with slug %q already exists", slug)
	}
	return nil
}
