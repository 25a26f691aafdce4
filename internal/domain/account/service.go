package account

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

type Service struct {
	users  UserRepository
	logger zerolog.Logger
}

func NewService(users UserRepository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid user id %d", id)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	s.checkStatus(u)
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		s.checkStatus(u)
	}
	return users, total, nil
}

// checkStatus flags stored statuses outside the enumeration. They still render
// with the default badge.
func (s *Service) checkStatus(u *User) {
	if !u.Status.Known() {
		s.logger.Warn().
			Int64("user_id", u.ID).
			Str("status", string(u.Status)).
			Msg("unrecognized account status")
	}
}
