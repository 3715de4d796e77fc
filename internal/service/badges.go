package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
	"qrbadge/api/internal/validation"
)

// BadgeStore is what the badge lifecycle needs: badges plus the access append.
type BadgeStore interface {
	store.BadgeStore
	CreateAccess(ctx context.Context, a model.Access) (model.Access, error)
}

// ScanRequest is one public scan of a QR code.
type ScanRequest struct {
	QRCode      string
	Name        string
	DeviceBrand string
	DeviceModel string
	IPAddress   string
	UserAgent   string
}

type CreateBadgeRequest struct {
	QRCode         string
	Name           string
	DeviceBrand    string
	DeviceModel    string
	ExpirationTime *time.Time
}

// UpdateBadgeRequest fields left nil keep their stored value.
type UpdateBadgeRequest struct {
	Name           *string
	DeviceBrand    *string
	DeviceModel    *string
	ExpirationTime *time.Time
	IsActive       *bool
}

type Badges struct {
	store  BadgeStore
	policy validation.ExpirationPolicy
	now    func() time.Time
	log    *slog.Logger
}

func NewBadges(st BadgeStore, policy validation.ExpirationPolicy, opts ...Option) *Badges {
	o := buildOptions(opts)
	return &Badges{store: st, policy: policy, now: o.now, log: o.logger}
}

// ValidateOrCreate registers a scan: the badge is created on first sight or
// renewed otherwise, and exactly one access is appended for it.
func (s *Badges) ValidateOrCreate(ctx context.Context, req ScanRequest) (model.Badge, error) {
	if !validation.IsValidQRCode(req.QRCode) {
		return model.Badge{}, newError(KindInvalidInput, MsgInvalidQRCode)
	}
	if err := checkDevice(req.DeviceBrand, req.DeviceModel); err != nil {
		return model.Badge{}, err
	}

	now := s.now().UTC()
	badge, err := s.createOrRenew(ctx, req, now)
	if err != nil {
		return model.Badge{}, err
	}

	if _, err := s.store.CreateAccess(ctx, model.Access{
		BadgeID:   badge.ID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}); err != nil {
		return model.Badge{}, fmt.Errorf("log access for badge %s: %w", badge.ID, err)
	}

	return badge, nil
}

func (s *Badges) createOrRenew(ctx context.Context, req ScanRequest, now time.Time) (model.Badge, error) {
	renew := store.RenewBadgeRequest{
		QRCode:         req.QRCode,
		Name:           req.Name,
		DeviceBrand:    req.DeviceBrand,
		DeviceModel:    req.DeviceModel,
		ValidationTime: now,
	}

	_, err := s.store.GetBadgeByQRCode(ctx, req.QRCode)
	switch {
	case err == nil:
		return s.renew(ctx, renew)
	case !errors.Is(err, store.ErrNotFound):
		return model.Badge{}, fmt.Errorf("lookup badge: %w", err)
	}

	created, err := s.store.CreateBadge(ctx, model.Badge{
		QRCode:         req.QRCode,
		Name:           req.Name,
		DeviceBrand:    req.DeviceBrand,
		DeviceModel:    req.DeviceModel,
		ValidationTime: &now,
		ExpirationTime: s.policy.Default(),
		IsActive:       true,
	})
	if errors.Is(err, store.ErrConflict) {
		// A concurrent scan created it first.
		return s.renew(ctx, renew)
	}
	if err != nil {
		return model.Badge{}, fmt.Errorf("create badge: %w", err)
	}
	s.log.Info("badge created on scan", "badge_id", created.ID, "qr_code", created.QRCode)
	return created, nil
}

func (s *Badges) renew(ctx context.Context, req store.RenewBadgeRequest) (model.Badge, error) {
	b, err := s.store.RenewBadge(ctx, req)
	if err != nil {
		return model.Badge{}, fmt.Errorf("renew badge: %w", err)
	}
	return *b, nil
}

// CheckStatus reports whether a badge is currently usable. It never logs an access.
func (s *Badges) CheckStatus(ctx context.Context, qrCode string) (model.Badge, error) {
	if !validation.IsValidQRCode(qrCode) {
		return model.Badge{}, newError(KindInvalidInput, MsgInvalidQRCode)
	}

	b, err := s.store.GetBadgeByQRCode(ctx, qrCode)
	if err != nil {
		return model.Badge{}, notFoundOr(err, MsgBadgeNotFound, "lookup badge")
	}
	if !b.IsActive {
		return model.Badge{}, newError(KindForbidden, MsgBadgeInactive)
	}
	if b.Expired(s.now()) {
		return model.Badge{}, newError(KindForbidden, MsgBadgeExpired)
	}
	return *b, nil
}

func (s *Badges) List(ctx context.Context) ([]model.Badge, error) {
	list, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	if list == nil {
		list = []model.Badge{}
	}
	return list, nil
}

func (s *Badges) Get(ctx context.Context, id string) (model.Badge, error) {
	if !validID(id) {
		return model.Badge{}, newError(KindNotFound, MsgBadgeNotFound)
	}
	b, err := s.store.GetBadge(ctx, id)
	if err != nil {
		return model.Badge{}, notFoundOr(err, MsgBadgeNotFound, "get badge")
	}
	return *b, nil
}

// Create registers a badge administratively. An expiration that is missing,
// past, or beyond the event ceiling falls back to the ceiling.
func (s *Badges) Create(ctx context.Context, req CreateBadgeRequest) (model.Badge, error) {
	if !validation.IsValidQRCode(req.QRCode) {
		return model.Badge{}, newError(KindInvalidInput, MsgInvalidQRCode)
	}
	if err := checkDevice(req.DeviceBrand, req.DeviceModel); err != nil {
		return model.Badge{}, err
	}

	if _, err := s.store.GetBadgeByQRCode(ctx, req.QRCode); err == nil {
		return model.Badge{}, newError(KindConflict, MsgQRCodeExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Badge{}, fmt.Errorf("lookup badge: %w", err)
	}

	b, err := s.store.CreateBadge(ctx, model.Badge{
		QRCode:         req.QRCode,
		Name:           req.Name,
		DeviceBrand:    req.DeviceBrand,
		DeviceModel:    req.DeviceModel,
		ExpirationTime: s.policy.Resolve(req.ExpirationTime, s.now()),
		IsActive:       true,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Badge{}, newError(KindConflict, MsgQRCodeExists)
		}
		return model.Badge{}, fmt.Errorf("create badge: %w", err)
	}
	return b, nil
}

// Update applies the supplied fields. An expiration outside the allowed
// window is ignored and the stored one kept.
func (s *Badges) Update(ctx context.Context, id string, req UpdateBadgeRequest) (model.Badge, error) {
	if !validID(id) {
		return model.Badge{}, newError(KindNotFound, MsgBadgeNotFound)
	}
	if err := checkDevice(deref(req.DeviceBrand), deref(req.DeviceModel)); err != nil {
		return model.Badge{}, err
	}

	patch := store.BadgePatch{
		Name:        req.Name,
		DeviceBrand: req.DeviceBrand,
		DeviceModel: req.DeviceModel,
		IsActive:    req.IsActive,
	}
	if req.ExpirationTime != nil && s.policy.Valid(*req.ExpirationTime, s.now()) {
		exp := req.ExpirationTime.UTC()
		patch.ExpirationTime = &exp
	}

	b, err := s.store.UpdateBadge(ctx, id, patch)
	if err != nil {
		return model.Badge{}, notFoundOr(err, MsgBadgeNotFound, "update badge")
	}
	return *b, nil
}

// Delete removes the badge together with its accesses.
func (s *Badges) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return newError(KindNotFound, MsgBadgeNotFound)
	}
	if err := s.store.DeleteBadge(ctx, id); err != nil {
		return notFoundOr(err, MsgBadgeNotFound, "delete badge")
	}
	return nil
}

// CloseEvent deactivates every badge in one statement and returns how many rows changed.
func (s *Badges) CloseEvent(ctx context.Context) (int, error) {
	n, err := s.store.DeactivateAllBadges(ctx)
	if err != nil {
		return 0, fmt.Errorf("deactivate badges: %w", err)
	}
	s.log.Info("event closed", "badges_deactivated", n)
	return n, nil
}

func checkDevice(brand, model string) error {
	if brand != "" && !validation.IsValidDeviceBrand(brand) {
		return newError(KindInvalidInput, MsgInvalidDeviceBrand)
	}
	if model != "" && !validation.IsValidDeviceModel(model) {
		return newError(KindInvalidInput, MsgInvalidDeviceModel)
	}
	return nil
}

func notFoundOr(err error, msg, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
