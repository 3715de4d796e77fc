package service

import (
	"context"
	"fmt"
	"log/slog"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

// AccessStore is what the access log needs: accesses plus badge lookup.
type AccessStore interface {
	store.AccessStore
	GetBadge(ctx context.Context, id string) (*model.Badge, error)
}

type Accesses struct {
	store AccessStore
	log   *slog.Logger
}

func NewAccesses(st AccessStore, opts ...Option) *Accesses {
	o := buildOptions(opts)
	return &Accesses{store: st, log: o.logger}
}

// List returns every access, newest first, joined with its badge.
func (s *Accesses) List(ctx context.Context) ([]model.AccessWithBadge, error) {
	list, err := s.store.ListAccesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accesses: %w", err)
	}
	if list == nil {
		list = []model.AccessWithBadge{}
	}
	return list, nil
}

// ListByBadge returns the badge and its accesses, newest first.
func (s *Accesses) ListByBadge(ctx context.Context, badgeID string) (model.Badge, []model.Access, error) {
	if !validID(badgeID) {
		return model.Badge{}, nil, newError(KindNotFound, MsgBadgeNotFound)
	}
	b, err := s.store.GetBadge(ctx, badgeID)
	if err != nil {
		return model.Badge{}, nil, notFoundOr(err, MsgBadgeNotFound, "get badge")
	}
	list, err := s.store.ListAccessesByBadge(ctx, badgeID)
	if err != nil {
		return model.Badge{}, nil, fmt.Errorf("list accesses for badge %s: %w", badgeID, err)
	}
	if list == nil {
		list = []model.Access{}
	}
	return *b, list, nil
}

// Stats aggregates the access log. Each figure is read on its own and the
// four need not describe the same snapshot.
func (s *Accesses) Stats(ctx context.Context) (model.AccessStats, error) {
	var (
		stats model.AccessStats
		err   error
	)
	if stats.Total, err = s.store.CountAccesses(ctx); err != nil {
		return model.AccessStats{}, fmt.Errorf("count accesses: %w", err)
	}
	if stats.UniqueBadges, err = s.store.CountAccessedBadges(ctx); err != nil {
		return model.AccessStats{}, fmt.Errorf("count accessed badges: %w", err)
	}
	if stats.Daily, err = s.store.DailyAccessCounts(ctx); err != nil {
		return model.AccessStats{}, fmt.Errorf("daily access counts: %w", err)
	}
	if stats.Devices, err = s.store.DeviceAccessCounts(ctx); err != nil {
		return model.AccessStats{}, fmt.Errorf("device access counts: %w", err)
	}
	if stats.Daily == nil {
		stats.Daily = []model.DailyCount{}
	}
	if stats.Devices == nil {
		stats.Devices = []model.DeviceCount{}
	}
	return stats, nil
}

func (s *Accesses) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return newError(KindNotFound, MsgAccessNotFound)
	}
	if err := s.store.DeleteAccess(ctx, id); err != nil {
		return notFoundOr(err, MsgAccessNotFound, "delete access")
	}
	return nil
}
