package memory

import (
	"context"
	"sort"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

func (s *Store) CreateBadge(_ context.Context, b model.Badge) (model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.badges {
		if existing.QRCode == b.QRCode {
			return model.Badge{}, store.ErrConflict
		}
	}

	now := s.nowUTC()
	b.ID = s.newID()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.badges[b.ID] = b
	return b, nil
}

func (s *Store) GetBadge(_ context.Context, id string) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.badges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) GetBadgeByQRCode(_ context.Context, qrCode string) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.findByQRCode(qrCode); ok {
		return &b, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListBadges(_ context.Context) ([]model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Badge, 0, len(s.badges))
	for _, b := range s.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.newerFirst(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RenewBadge(_ context.Context, req store.RenewBadgeRequest) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.findByQRCode(req.QRCode)
	if !ok {
		return nil, store.ErrNotFound
	}

	if req.Name != "" {
		b.Name = req.Name
	}
	b.DeviceBrand = req.DeviceBrand
	b.DeviceModel = req.DeviceModel
	vt := req.ValidationTime.UTC()
	b.ValidationTime = &vt
	b.UpdatedAt = s.nowUTC()
	s.badges[b.ID] = b
	return &b, nil
}

func (s *Store) UpdateBadge(_ context.Context, id string, p store.BadgePatch) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.badges[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.DeviceBrand != nil {
		b.DeviceBrand = *p.DeviceBrand
	}
	if p.DeviceModel != nil {
		b.DeviceModel = *p.DeviceModel
	}
	if p.ExpirationTime != nil {
		b.ExpirationTime = p.ExpirationTime.UTC()
	}
	if p.IsActive != nil {
		b.IsActive = *p.IsActive
	}
	b.UpdatedAt = s.nowUTC()
	s.badges[id] = b
	return &b, nil
}

func (s *Store) DeleteBadge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.badges[id]; !ok {
		return store.ErrNotFound
	}
	for aid, a := range s.accesses {
		if a.BadgeID == id {
			delete(s.accesses, aid)
			delete(s.order, aid)
		}
	}
	delete(s.badges, id)
	delete(s.order, id)
	return nil
}

func (s *Store) DeactivateAllBadges(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowUTC()
	for id, b := range s.badges {
		b.IsActive = false
		b.UpdatedAt = now
		s.badges[id] = b
	}
	return len(s.badges), nil
}

func (s *Store) findByQRCode(qrCode string) (model.Badge, bool) {
	for _, b := range s.badges {
		if b.QRCode == qrCode {
			return b, true
		}
	}
	return model.Badge{}, false
}
