package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

const badgeColumns = `
	id::text, qr_code, coalesce(name, ''), coalesce(device_brand, ''), coalesce(device_model, ''),
	validation_time, expiration_time, is_active, created_at, updated_at`

func scanBadge(row pgx.Row) (model.Badge, error) {
	var b model.Badge
	err := row.Scan(
		&b.ID,
		&b.QRCode,
		&b.Name,
		&b.DeviceBrand,
		&b.DeviceModel,
		&b.ValidationTime,
		&b.ExpirationTime,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func (s *Store) CreateBadge(ctx context.Context, b model.Badge) (model.Badge, error) {
	out, err := scanBadge(s.pool.QueryRow(ctx, `
		insert into badges (qr_code, name, device_brand, device_model, validation_time, expiration_time, is_active)
		values ($1, nullif($2, ''), nullif($3, ''), nullif($4, ''), $5, $6, $7)
		returning `+badgeColumns,
		b.QRCode, b.Name, b.DeviceBrand, b.DeviceModel, b.ValidationTime, b.ExpirationTime, b.IsActive,
	))
	if err != nil {
		return model.Badge{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) GetBadge(ctx context.Context, id string) (*model.Badge, error) {
	b, err := scanBadge(s.pool.QueryRow(ctx, `
		select `+badgeColumns+`
		from badges
		where id = $1::uuid
	`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &b, nil
}

func (s *Store) GetBadgeByQRCode(ctx context.Context, qrCode string) (*model.Badge, error) {
	b, err := scanBadge(s.pool.QueryRow(ctx, `
		select `+badgeColumns+`
		from badges
		where qr_code = $1
	`, qrCode))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &b, nil
}

func (s *Store) ListBadges(ctx context.Context) ([]model.Badge, error) {
	rows, err := s.pool.Query(ctx, `
		select `+badgeColumns+`
		from badges
		order by created_at desc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.Badge{}
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, b)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) RenewBadge(ctx context.Context, req store.RenewBadgeRequest) (*model.Badge, error) {
	b, err := scanBadge(s.pool.QueryRow(ctx, `
		update badges
		set name = coalesce(nullif($2, ''), name),
		    device_brand = nullif($3, ''),
		    device_model = nullif($4, ''),
		    validation_time = $5,
		    updated_at = now()
		where qr_code = $1
		returning `+badgeColumns,
		req.QRCode, req.Name, req.DeviceBrand, req.DeviceModel, req.ValidationTime,
	))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &b, nil
}

func (s *Store) UpdateBadge(ctx context.Context, id string, p store.BadgePatch) (*model.Badge, error) {
	b, err := scanBadge(s.pool.QueryRow(ctx, `
		update badges
		set name = coalesce($2::text, name),
		    device_brand = coalesce($3::text, device_brand),
		    device_model = coalesce($4::text, device_model),
		    expiration_time = coalesce($5::timestamptz, expiration_time),
		    is_active = coalesce($6::boolean, is_active),
		    updated_at = now()
		where id = $1::uuid
		returning `+badgeColumns,
		id, p.Name, p.DeviceBrand, p.DeviceModel, p.ExpirationTime, p.IsActive,
	))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &b, nil
}

func (s *Store) DeleteBadge(ctx context.Context, id string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapPgErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `delete from accesses where badge_id = $1::uuid`, id); err != nil {
		return mapPgErr(err)
	}

	tag, err := tx.Exec(ctx, `delete from badges where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (s *Store) DeactivateAllBadges(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		update badges
		set is_active = false,
		    updated_at = now()
	`)
	if err != nil {
		return 0, mapPgErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func mapRowsErr(rows pgx.Rows) error {
	if err := rows.Err(); err != nil {
		return mapPgErr(err)
	}
	return nil
}
