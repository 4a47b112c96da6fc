package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	if db == nil {
		return nil
	}
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("user store not initialized")
	}
	if err := user.Validate(); err != nil {
		return err
	}
	createdAt := normalizeTime(user.CreatedAt)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (
			user_key,
			username,
			password_hash,
			email,
			nodal_person,
			designation,
			company,
			phone,
			roles,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		strings.TrimSpace(user.UserKey),
		strings.TrimSpace(user.Username),
		user.PasswordHash,
		strings.TrimSpace(user.Email),
		strings.TrimSpace(user.NodalPerson),
		strings.TrimSpace(user.Designation),
		strings.TrimSpace(user.Company),
		strings.TrimSpace(user.Phone),
		strings.Join(user.Roles, ","),
		createdAt,
	)
	if err != nil {
		if dup := handleDuplicate(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	if s == nil || s.db == nil {
		return domain.User{}, fmt.Errorf("user store not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("username is required")
	}
	return s.get(ctx, "username = $1", username)
}

func (s *UserStore) GetByKey(ctx context.Context, userKey string) (domain.User, error) {
	if s == nil || s.db == nil {
		return domain.User{}, fmt.Errorf("user store not initialized")
	}
	userKey = strings.TrimSpace(userKey)
	if userKey == "" {
		return domain.User{}, fmt.Errorf("user key is required")
	}
	return s.get(ctx, "user_key = $1", userKey)
}

func (s *UserStore) get(ctx context.Context, where string, arg any) (domain.User, error) {
	var user domain.User
	var roles string
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_key, username, password_hash, email, nodal_person, designation, company, phone, roles, created_at
		 FROM users
		 WHERE `+where,
		arg,
	)
	if err := row.Scan(&user.UserKey, &user.Username, &user.PasswordHash, &user.Email, &user.NodalPerson, &user.Designation, &user.Company, &user.Phone, &roles, &user.CreatedAt); err != nil {
		return domain.User{}, handleNotFound(err)
	}
	if roles != "" {
		user.Roles = strings.Split(roles, ",")
	}
	return user, nil
}
