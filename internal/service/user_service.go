package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/eventify/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrAccountFieldsMissing = errors.New("required account fields are missing")
	ErrPasswordMissing      = errors.New("password is required")
	ErrPasswordWeak         = errors.New("password is too short")
	ErrEmailInvalid         = errors.New("email is invalid")
	ErrEmailInUse           = errors.New("email is already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrWrongPassword        = errors.New("wrong password")
)

// RegisterInput holds the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserService handles accounts for the booking dashboard.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// Register creates an account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	name := sanitizeText(input.Name)
	if strings.TrimSpace(input.Email) == "" || name == "" {
		return nil, ErrAccountFieldsMissing
	}
	if input.Password == "" {
		return nil, ErrPasswordMissing
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordWeak
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailInUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := db.User{Name: name, Email: email, Password: string(hashed)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*db.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrAccountFieldsMissing
	}
	if password == "" {
		return nil, ErrPasswordMissing
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return &user, nil
}

// Get fetches a user by uid.
func (s *UserService) Get(ctx context.Context, id string) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
