package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/models"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown name or a
// wrong password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid name or password")

const minPasswordLen = 6

type Users struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUsers(db *gorm.DB, timeout time.Duration) *Users {
	return &Users{db: db, timeout: timeout}
}

// Register creates a user. Names are unique.
func (u *Users) Register(ctx context.Context, name, password string) (*models.User, error) {
	const op = "users.Register"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Invalid(op, "name is required")
	}
	if len(password) < minPasswordLen {
		return nil, models.Invalid(op, "password must be at least %d characters", minPasswordLen)
	}

	dbCtx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	user := &models.User{Name: name, Password: password}
	if err := u.db.WithContext(dbCtx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewError(op, models.ErrConflict, errors.New("name already taken"))
		}
		return nil, dbError(op, err)
	}
	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user whose name and password match.
func (u *Users) Authenticate(ctx context.Context, name, password string) (*models.User, error) {
	const op = "users.Authenticate"
	dbCtx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	var user models.User
	if err := u.db.WithContext(dbCtx).Where("name = ?", strings.TrimSpace(name)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, dbError(op, err)
	}
	if err := user.ValidatePassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (u *Users) Get(ctx context.Context, id uint) (*models.User, error) {
	const op = "users.Get"
	dbCtx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	user, err := requireUser(u.db.WithContext(dbCtx), op, id)
	if err != nil {
		return nil, dbError(op, err)
	}
	return user, nil
}
