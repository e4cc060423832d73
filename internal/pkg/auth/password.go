// internal/pkg/auth/password.go
package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	sequentialLetters = regexp.MustCompile(`(?i)(abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz)`)
	sequentialDigits  = regexp.MustCompile(`(012|123|234|345|456|567|678|789)`)
)

var commonPasswords = []string{
	"password", "123456", "admin", "qwerty", "letmein",
	"welcome", "monkey", "dragon", "football",
}

// PasswordManager handles password operations
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a new password manager. Costs outside bcrypt's
// range fall back to the default cost.
func NewPasswordManager(cost int) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordManager{cost: cost}
}

// HashPassword validates and hashes a password using bcrypt
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword checks password strength and returns a validation error
// naming the first rule that failed
func (p *PasswordManager) ValidatePassword(password string) error {
	if problem := passwordProblem(password); problem != "" {
		return apperrors.New(apperrors.CodeValidation, problem).
			WithDetails(map[string]string{"password": problem})
	}
	return nil
}

func passwordProblem(password string) string {
	if len(password) < 8 {
		return "password must be at least 8 characters long"
	}
	if len(password) > 72 {
		return "password must be no more than 72 characters long"
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return "password must contain at least one uppercase letter"
	case !hasLower:
		return "password must contain at least one lowercase letter"
	case !hasNumber:
		return "password must contain at least one number"
	case !hasSpecial:
		return "password must contain at least one special character"
	case sequentialLetters.MatchString(password):
		return "password cannot contain sequential letters"
	case sequentialDigits.MatchString(password):
		return "password cannot contain sequential numbers"
	case hasRepeats(password, 3):
		return "password cannot contain more than 2 repeating characters"
	}

	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			return "password is too common and easily guessable"
		}
	}
	return ""
}

// hasRepeats reports whether any character occurs n times in a row
func hasRepeats(s string, n int) bool {
	run := 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run >= n {
			return true
		}
	}
	return false
}
