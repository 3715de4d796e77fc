package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
)

const userColumns = `id::text, name, email, password, role, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	out, err := scanUser(s.pool.QueryRow(ctx, `
		insert into users (name, email, password, role)
		values ($1, $2, $3, coalesce(nullif($4, ''), 'user'))
		returning `+userColumns,
		u.Name, u.Email, u.PasswordHash, u.Role,
	))
	if err != nil {
		return model.User{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		select `+userColumns+`
		from users
		where id = $1::uuid
	`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		select `+userColumns+`
		from users
		where email = $1
	`, email))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		select `+userColumns+`
		from users
		order by created_at desc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, u)
	}
	return out, mapRowsErr(rows)
}

func (s *Store) UpdateUser(ctx context.Context, id string, p store.UserPatch) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		update users
		set name = coalesce($2::text, name),
		    email = coalesce($3::text, email),
		    password = coalesce($4::text, password),
		    role = coalesce($5::text, role),
		    updated_at = now()
		where id = $1::uuid
		returning `+userColumns,
		id, p.Name, p.Email, p.PasswordHash, p.Role,
	))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from users where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
