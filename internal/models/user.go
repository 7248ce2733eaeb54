package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// User is an account record.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Status       string    `db:"status" json:"status"`
	Bio          string    `db:"bio" json:"bio"`
	Phone        string    `db:"phone" json:"phone"`
	PhotoURL     string    `db:"photo_url" json:"photoUrl"`
	ShowLastSeen bool      `db:"show_last_seen" json:"showLastSeen"`
	ShowPhoto    bool      `db:"show_photo" json:"showPhoto"`
	BlockedUsers IDList    `db:"blocked_users" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Summary returns the public projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, PhotoURL: u.PhotoURL}
}

// HasBlocked reports whether u blocked other.
func (u User) HasBlocked(other int) bool {
	return u.BlockedUsers.Contains(other)
}

// UserSummary is the resolved view of a user embedded in conversations and messages.
// A deleted account resolves to an id-only summary.
type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username     *string
	Bio          *string
	Status       *string
	Phone        *string
	ShowLastSeen *bool
	ShowPhoto    *bool
}

// IDList is an ordered set of ids stored in a Postgres INT[] column.
type IDList []int

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return err
	}
	out := make(IDList, 0, len(arr))
	for _, v := range arr {
		out = append(out, int(v))
	}
	*l = out
	return nil
}

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	arr := make(pq.Int64Array, 0, len(l))
	for _, v := range l {
		arr = append(arr, int64(v))
	}
	return arr.Value()
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id int) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
