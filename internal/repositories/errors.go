package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrDuplicate            = errors.New("duplicate record")
	ErrUsernameTaken        = errors.New("username taken")
)

const (
	uniqueViolation = "23505"

	// usernameIndex enforces case-insensitive username uniqueness.
	usernameIndex = "users_username_lower_key"
)

// uniqueError maps a unique violation to ErrUsernameTaken or ErrDuplicate
// depending on the constraint hit. Other errors pass through.
func uniqueError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if pqErr.Constraint == usernameIndex {
		return ErrUsernameTaken
	}
	return ErrDuplicate
}
