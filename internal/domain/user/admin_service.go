// internal/domain/user/admin_service.go
package user

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// AdminService handles staff-side user management
type AdminService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, log logrus.FieldLogger) *AdminService {
	return &AdminService{db: db, log: log}
}

var userSortColumns = map[string]string{
	"created_at":    "created_at",
	"email":         "email",
	"last_login_at": "last_login_at",
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	Status    string `form:"status"` // active, inactive, all
	Role      string `form:"role"`   // staff, customer, all
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// UserListResponse represents user list with pagination
type UserListResponse struct {
	Users      []UserWithStats `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// UserWithStats is a user with storefront activity counters
type UserWithStats struct {
	User
	CartCount int64 `json:"cart_count"`
	LikeCount int64 `json:"like_count"`
}

// UserStatusUpdateRequest represents user status update data
type UserStatusUpdateRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UserStaffRequest grants or revokes staff access
type UserStaffRequest struct {
	IsStaff *bool `json:"is_staff" binding:"required"`
}

func (s *AdminService) filtered(ctx context.Context, req *UserListRequest) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&User{})

	if req.Search != "" {
		term := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", term, term, term)
	}

	switch req.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	switch req.Role {
	case "staff":
		query = query.Where("is_staff = ?", true)
	case "customer":
		query = query.Where("is_staff = ?", false)
	}

	if req.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", req.DateFrom); err == nil {
			query = query.Where("created_at >= ?", from)
		}
	}
	if req.DateTo != "" {
		if to, err := time.Parse("2006-01-02", req.DateTo); err == nil {
			query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
		}
	}
	return query
}

// GetUsers retrieves users with filtering and pagination
func (s *AdminService) GetUsers(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	column, ok := userSortColumns[req.SortBy]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeValidation, "cannot sort users by %q", req.SortBy)
	}

	query := s.filtered(ctx, req)
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	direction := " ASC"
	if strings.EqualFold(req.SortOrder, "desc") {
		direction = " DESC"
	}

	var users []User
	if err := query.Order(column + direction).Order("id ASC").
		Offset((req.Page - 1) * req.Limit).Limit(req.Limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	out := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		stats, err := s.withStats(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, *stats)
	}

	return &UserListResponse{
		Users:      out,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: int((total + int64(req.Limit) - 1) / int64(req.Limit)),
	}, nil
}

// GetUser retrieves a single user with stats
func (s *AdminService) GetUser(ctx context.Context, userID uint) (*UserWithStats, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "user not found")
	}
	return s.withStats(ctx, u)
}

func (s *AdminService) withStats(ctx context.Context, u User) (*UserWithStats, error) {
	stats := &UserWithStats{User: u}
	stats.User.Password = ""

	db := s.db.WithContext(ctx)
	if err := db.Table("carts").Where("user_id = ?", u.ID).Count(&stats.CartCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count carts: %w", err)
	}
	if err := db.Table("likes").Where("sender_id = ?", u.ID).Count(&stats.LikeCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	return stats, nil
}

// UpdateUserStatus activates or deactivates a user
func (s *AdminService) UpdateUserStatus(ctx context.Context, userID uint, req *UserStatusUpdateRequest, staffID uint) error {
	var u User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return apperrors.NotFoundOr(err, "user not found")
	}
	if userID == staffID && !*req.IsActive {
		return apperrors.New(apperrors.CodeStateConflict, "cannot deactivate your own account")
	}

	if err := s.db.WithContext(ctx).Model(&u).Update("is_active", *req.IsActive).Error; err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "staff_id": staffID, "is_active": *req.IsActive}).Info("user status updated")
	return nil
}

// SetStaff grants or revokes staff access. At least one active staff user
// must remain.
func (s *AdminService) SetStaff(ctx context.Context, userID uint, req *UserStaffRequest, staffID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, userID).Error; err != nil {
			return apperrors.NotFoundOr(err, "user not found")
		}
		if !*req.IsStaff {
			if userID == staffID {
				return apperrors.New(apperrors.CodeStateConflict, "cannot remove your own staff access")
			}
			var others int64
			if err := tx.Model(&User{}).Where("is_staff = ? AND is_active = ? AND id <> ?", true, true, userID).
				Count(&others).Error; err != nil {
				return fmt.Errorf("failed to count staff: %w", err)
			}
			if others == 0 {
				return apperrors.New(apperrors.CodeStateConflict, "at least one staff user must remain")
			}
		}

		if err := tx.Model(&u).Update("is_staff", *req.IsStaff).Error; err != nil {
			return fmt.Errorf("failed to update staff status: %w", err)
		}
		s.log.WithFields(logrus.Fields{"user_id": userID, "staff_id": staffID, "is_staff": *req.IsStaff}).Info("staff access updated")
		return nil
	})
}

// ExportUsers renders the filtered users as CSV
func (s *AdminService) ExportUsers(ctx context.Context, req *UserListRequest) ([]byte, string, error) {
	var users []User
	if err := s.filtered(ctx, req).Order("created_at DESC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, "", fmt.Errorf("failed to retrieve users for export: %w", err)
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	records := [][]string{{"ID", "Email", "First Name", "Last Name", "Is Active", "Is Staff", "Created At", "Last Login"}}
	for _, u := range users {
		lastLogin := "Never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Format("2006-01-02 15:04:05")
		}
		records = append(records, []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email,
			u.FirstName,
			u.LastName,
			strconv.FormatBool(u.IsActive),
			strconv.FormatBool(u.IsStaff),
			u.CreatedAt.Format("2006-01-02 15:04:05"),
			lastLogin,
		})
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, "", fmt.Errorf("failed to write CSV: %w", err)
	}

	filename := fmt.Sprintf("users_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	return []byte(buf.String()), filename, nil
}
