package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"connect-service/internal/models"
)

// UserRepository abstracts account persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, userID int) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	UpdatePhoto(ctx context.Context, userID int, photoURL string) error
	Delete(ctx context.Context, userID int) error
	Block(ctx context.Context, userID int, targetID int) error
	Unblock(ctx context.Context, userID int, targetID int) error
	Summaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, status, bio, phone, photo_url,
        show_last_seen, show_photo, blocked_users, created_at, updated_at`

// Create inserts a new account. A taken email yields ErrDuplicate and a taken
// username ErrUsernameTaken.
func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	var created models.User
	err := r.db.GetContext(ctx, &created, `INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3) RETURNING `+userColumns, user.Username, user.Email, user.PasswordHash)
	if err != nil {
		return models.User{}, uniqueError(err)
	}
	return created, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetByUsername matches the username case-insensitively.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username)=LOWER($1)`, username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UsernameExists uses the same case-insensitive rule as GetByUsername.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username)=LOWER($1))`, username)
	return exists, err
}

// UpdateProfile applies the non-nil fields of update.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `UPDATE users SET
            username = COALESCE($2, username),
            bio = COALESCE($3, bio),
            status = COALESCE($4, status),
            phone = COALESCE($5, phone),
            show_last_seen = COALESCE($6, show_last_seen),
            show_photo = COALESCE($7, show_photo),
            updated_at = NOW()
        WHERE id=$1 RETURNING `+userColumns,
		userID, update.Username, update.Bio, update.Status, update.Phone, update.ShowLastSeen, update.ShowPhoto)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, uniqueError(err)
	}
	return user, nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
}

// UpdatePhoto sets or clears the profile photo reference.
func (r *UserRepo) UpdatePhoto(ctx context.Context, userID int, photoURL string) error {
	return r.execOne(ctx, `UPDATE users SET photo_url=$2, updated_at=NOW() WHERE id=$1`, userID, photoURL)
}

// Delete removes the account row. Conversations and messages are left untouched.
func (r *UserRepo) Delete(ctx context.Context, userID int) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id=$1`, userID)
}

// Block adds targetID to the user's block list if absent.
func (r *UserRepo) Block(ctx context.Context, userID int, targetID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET blocked_users = array_append(blocked_users, $2), updated_at=NOW()
        WHERE id=$1 AND NOT ($2 = ANY(blocked_users))`, userID, targetID)
	return err
}

// Unblock removes targetID from the user's block list.
func (r *UserRepo) Unblock(ctx context.Context, userID int, targetID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET blocked_users = array_remove(blocked_users, $2), updated_at=NOW()
        WHERE id=$1`, userID, targetID)
	return err
}

// Summaries resolves public profiles for ids. Missing ids are absent from the map.
func (r *UserRepo) Summaries(ctx context.Context, ids []int) (map[int]models.UserSummary, error) {
	result := make(map[int]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []struct {
		ID       int    `db:"id"`
		Username string `db:"username"`
		Email    string `db:"email"`
		PhotoURL string `db:"photo_url"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT id, username, email, photo_url FROM users WHERE id = ANY($1)`, models.IDList(ids))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = models.UserSummary{ID: row.ID, Username: row.Username, Email: row.Email, PhotoURL: row.PhotoURL}
	}
	return result, nil
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
