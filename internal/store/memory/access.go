package memory

import (
	"context"
	"sort"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

func (s *Store) CreateAccess(_ context.Context, a model.Access) (model.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.badges[a.BadgeID]; !ok {
		return model.Access{}, store.ErrNotFound
	}

	a.ID = s.newID()
	a.CreatedAt = s.nowUTC()
	s.accesses[a.ID] = a
	return a, nil
}

func (s *Store) GetAccess(_ context.Context, id string) (*model.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accesses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAccesses(_ context.Context) ([]model.AccessWithBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AccessWithBadge, 0, len(s.accesses))
	for _, a := range s.accesses {
		b := s.badges[a.BadgeID]
		out = append(out, model.AccessWithBadge{
			Access:      a,
			QRCode:      b.QRCode,
			Name:        b.Name,
			DeviceBrand: b.DeviceBrand,
			DeviceModel: b.DeviceModel,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return s.newerFirst(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListAccessesByBadge(_ context.Context, badgeID string) ([]model.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Access, 0)
	for _, a := range s.accesses {
		if a.BadgeID == badgeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.newerFirst(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountAccesses(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accesses), nil
}

func (s *Store) CountAccessedBadges(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, a := range s.accesses {
		seen[a.BadgeID] = struct{}{}
	}
	return len(seen), nil
}

func (s *Store) DailyAccessCounts(_ context.Context) ([]model.DailyCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range s.accesses {
		counts[a.CreatedAt.UTC().Format("2006-01-02")]++
	}
	out := make([]model.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, model.DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) DeviceAccessCounts(_ context.Context) ([]model.DeviceCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range s.accesses {
		counts[s.badges[a.BadgeID].DeviceBrand]++
	}
	out := make([]model.DeviceCount, 0, len(counts))
	for brand, n := range counts {
		out = append(out, model.DeviceCount{DeviceBrand: brand, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DeviceBrand < out[j].DeviceBrand
	})
	return out, nil
}

func (s *Store) DeleteAccess(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accesses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accesses, id)
	delete(s.order, id)
	return nil
}
