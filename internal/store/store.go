package store

import (
	"context"
	"errors"
	"time"

	"qrbadge/api/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

// RenewBadgeRequest refreshes a badge on rescan. Name is only applied when non-empty.
type RenewBadgeRequest struct {
	QRCode         string
	Name           string
	DeviceBrand    string
	DeviceModel    string
	ValidationTime time.Time
}

// BadgePatch carries optional fields; nil means keep the stored value.
type BadgePatch struct {
	Name           *string
	DeviceBrand    *string
	DeviceModel    *string
	ExpirationTime *time.Time
	IsActive       *bool
}

// UserPatch carries optional fields; nil means keep the stored value.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
}

type BadgeStore interface {
	CreateBadge(ctx context.Context, b model.Badge) (model.Badge, error)
	GetBadge(ctx context.Context, id string) (*model.Badge, error)
	GetBadgeByQRCode(ctx context.Context, qrCode string) (*model.Badge, error)
	ListBadges(ctx context.Context) ([]model.Badge, error)
	RenewBadge(ctx context.Context, req RenewBadgeRequest) (*model.Badge, error)
	UpdateBadge(ctx context.Context, id string, p BadgePatch) (*model.Badge, error)
	// DeleteBadge removes the badge and its accesses atomically.
	DeleteBadge(ctx context.Context, id string) error
	DeactivateAllBadges(ctx context.Context) (int, error)
}

type AccessStore interface {
	CreateAccess(ctx context.Context, a model.Access) (model.Access, error)
	GetAccess(ctx context.Context, id string) (*model.Access, error)
	ListAccesses(ctx context.Context) ([]model.AccessWithBadge, error)
	ListAccessesByBadge(ctx context.Context, badgeID string) ([]model.Access, error)
	CountAccesses(ctx context.Context) (int, error)
	CountAccessedBadges(ctx context.Context) (int, error)
	DailyAccessCounts(ctx context.Context) ([]model.DailyCount, error)
	DeviceAccessCounts(ctx context.Context) ([]model.DeviceCount, error)
	DeleteAccess(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id string, p UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Store interface {
	BadgeStore
	AccessStore
	UserStore

	Ping(ctx context.Context) error
}
