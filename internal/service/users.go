package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"qrbadge/api/internal/auth"
	"qrbadge/api/internal/model"
	"qrbadge/api/internal/store"
	"qrbadge/api/internal/validation"
)

type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UpdateUserRequest fields that are nil or empty keep their stored value.
type UpdateUserRequest struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

type LoginResult struct {
	User  model.User
	Token string
}

type Users struct {
	store  store.UserStore
	tokens *auth.Tokens
	log    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUsers(st store.UserStore, tokens *auth.Tokens, opts ...Option) *Users {
	o := buildOptions(opts)
	return &Users{store: st, tokens: tokens, log: o.logger}
}

// Login checks credentials and issues a token. Unknown email and wrong
// password fail with the same message.
func (s *Users) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if !validation.IsValidEmail(email) {
		return LoginResult{}, newError(KindInvalidInput, MsgInvalidEmail)
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a comparison so both failure paths cost the same.
		_ = auth.CheckPassword(s.placeholderHash(), password)
		return LoginResult{}, newError(KindUnauthorized, MsgInvalidCredentials)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return LoginResult{}, newError(KindUnauthorized, MsgInvalidCredentials)
		}
		return LoginResult{}, fmt.Errorf("check password: %w", err)
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user logged in", "user_id", u.ID)
	return LoginResult{User: *u, Token: token}, nil
}

func (s *Users) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("placeholder-password")
	})
	return s.dummyHash
}

func (s *Users) Create(ctx context.Context, req CreateUserRequest) (model.User, error) {
	if !validation.IsValidUsername(req.Name) {
		return model.User{}, newError(KindInvalidInput, MsgInvalidName)
	}
	if !validation.IsValidEmail(req.Email) {
		return model.User{}, newError(KindInvalidInput, MsgInvalidEmail)
	}
	if !validation.IsValidPassword(req.Password) {
		return model.User{}, newError(KindInvalidInput, MsgInvalidPassword)
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return model.User{}, newError(KindConflict, MsgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	role := req.Role
	if role == "" {
		role = model.DefaultRole
	}

	u, err := s.store.CreateUser(ctx, model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.User{}, newError(KindConflict, MsgEmailTaken)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Users) Update(ctx context.Context, id string, req UpdateUserRequest) (model.User, error) {
	if !validID(id) {
		return model.User{}, newError(KindNotFound, MsgUserNotFound)
	}
	current, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, MsgUserNotFound, "get user")
	}

	var patch store.UserPatch
	if name := deref(req.Name); name != "" {
		if !validation.IsValidUsername(name) {
			return model.User{}, newError(KindInvalidInput, MsgInvalidName)
		}
		patch.Name = &name
	}
	if email := deref(req.Email); email != "" {
		if !validation.IsValidEmail(email) {
			return model.User{}, newError(KindInvalidInput, MsgInvalidEmail)
		}
		if email != current.Email {
			other, err := s.store.GetUserByEmail(ctx, email)
			switch {
			case err == nil && other.ID != id:
				return model.User{}, newError(KindConflict, MsgEmailTaken)
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return model.User{}, fmt.Errorf("lookup user: %w", err)
			}
		}
		patch.Email = &email
	}
	if password := deref(req.Password); password != "" {
		if !validation.IsValidPassword(password) {
			return model.User{}, newError(KindInvalidInput, MsgInvalidPassword)
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if role := deref(req.Role); role != "" {
		patch.Role = &role
	}

	u, err := s.store.UpdateUser(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.User{}, newError(KindConflict, MsgEmailTaken)
		}
		return model.User{}, notFoundOr(err, MsgUserNotFound, "update user")
	}
	return *u, nil
}

func (s *Users) List(ctx context.Context) ([]model.User, error) {
	list, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if list == nil {
		list = []model.User{}
	}
	return list, nil
}

func (s *Users) Get(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, newError(KindNotFound, MsgUserNotFound)
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, MsgUserNotFound, "get user")
	}
	return *u, nil
}

func (s *Users) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return newError(KindNotFound, MsgUserNotFound)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return notFoundOr(err, MsgUserNotFound, "delete user")
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator when no account uses email.
// It reports whether an account was created.
func (s *Users) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	u, err := s.Create(ctx, CreateUserRequest{Name: name, Email: email, Password: password, Role: "admin"})
	if err != nil {
		if IsKind(err, KindConflict) {
			return false, nil
		}
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)
	return true, nil
}
