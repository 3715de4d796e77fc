package postgres

import (
	"context"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

func (s *Store) CreateAccess(ctx context.Context, a model.Access) (model.Access, error) {
	var out model.Access
	err := s.pool.QueryRow(ctx, `
		insert into accesses (badge_id, ip_address, user_agent)
		values ($1::uuid, nullif($2, ''), nullif($3, ''))
		returning id::text, badge_id::text, coalesce(ip_address, ''), coalesce(user_agent, ''), created_at
	`, a.BadgeID, a.IPAddress, a.UserAgent).Scan(
		&out.ID,
		&out.BadgeID,
		&out.IPAddress,
		&out.UserAgent,
		&out.CreatedAt,
	)
	if err != nil {
		return model.Access{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) GetAccess(ctx context.Context, id string) (*model.Access, error) {
	var a model.Access
	err := s.pool.QueryRow(ctx, `
		select id::text, badge_id::text, coalesce(ip_address, ''), coalesce(user_agent, ''), created_at
		from accesses
		where id = $1::uuid
	`, id).Scan(&a.ID, &a.BadgeID, &a.IPAddress, &a.UserAgent, &a.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &a, nil
}

func (s *Store) ListAccesses(ctx context.Context) ([]model.AccessWithBadge, error) {
	rows, err := s.pool.Query(ctx, `
		select a.id::text, a.badge_id::text, coalesce(a.ip_address, ''), coalesce(a.user_agent, ''), a.created_at,
		       b.qr_code, coalesce(b.name, ''), coalesce(b.device_brand, ''), coalesce(b.device_model, '')
		from accesses a
		join badges b on a.badge_id = b.id
		order by a.created_at desc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.AccessWithBadge{}
	for rows.Next() {
		var a model.AccessWithBadge
		if err := rows.Scan(
			&a.ID,
			&a.BadgeID,
			&a.IPAddress,
			&a.UserAgent,
			&a.CreatedAt,
			&a.QRCode,
			&a.Name,
			&a.DeviceBrand,
			&a.DeviceModel,
		); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, a)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) ListAccessesByBadge(ctx context.Context, badgeID string) ([]model.Access, error) {
	rows, err := s.pool.Query(ctx, `
		select id::text, badge_id::text, coalesce(ip_address, ''), coalesce(user_agent, ''), created_at
		from accesses
		where badge_id = $1::uuid
		order by created_at desc
	`, badgeID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.Access{}
	for rows.Next() {
		var a model.Access
		if err := rows.Scan(&a.ID, &a.BadgeID, &a.IPAddress, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, a)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) CountAccesses(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `select count(*) from accesses`).Scan(&n); err != nil {
		return 0, mapPgErr(err)
	}
	return n, nil
}

func (s *Store) CountAccessedBadges(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `select count(distinct badge_id) from accesses`).Scan(&n); err != nil {
		return 0, mapPgErr(err)
	}
	return n, nil
}

func (s *Store) DailyAccessCounts(ctx context.Context) ([]model.DailyCount, error) {
	rows, err := s.pool.Query(ctx, `
		select to_char(created_at at time zone 'UTC', 'YYYY-MM-DD') as day, count(*)
		from accesses
		group by day
		order by day desc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.DailyCount{}
	for rows.Next() {
		var d model.DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, d)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) DeviceAccessCounts(ctx context.Context) ([]model.DeviceCount, error) {
	rows, err := s.pool.Query(ctx, `
		select coalesce(b.device_brand, '') as brand, count(*) as n
		from accesses a
		join badges b on a.badge_id = b.id
		group by brand
		order by n desc, brand asc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.DeviceCount{}
	for rows.Next() {
		var d model.DeviceCount
		if err := rows.Scan(&d.DeviceBrand, &d.Count); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, d)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) DeleteAccess(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from accesses where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
